package vm

import (
	"errors"
	"fmt"
	"io"

	"github.com/h6-lang/h6/opcodes"
	"github.com/h6-lang/h6/values"
)

// Default system-call ids registered by the CLI runner and the REPL.
// Hosts embedding the runtime are free to ignore these and register
// their own table.
const (
	SysPutChar  = 0 // arity 1: emit the character for a number
	SysPrintNum = 1 // arity 1: print a number and a newline
	SysGetChar  = 2 // arity 0: read one byte, -1 on EOF
)

// RegisterStdIO installs the default handler set on top of the given
// streams.
func RegisterStdIO(rt *Runtime, in io.Reader, out io.Writer) {
	rt.Register(SysPutChar, 1, func(args []values.Value) ([]values.Value, error) {
		n, err := args[0].AsNum()
		if err != nil {
			return nil, err
		}
		if _, err := fmt.Fprintf(out, "%c", rune(n.Int())); err != nil {
			return nil, err
		}
		return nil, nil
	})

	rt.Register(SysPrintNum, 1, func(args []values.Value) ([]values.Value, error) {
		n, err := args[0].AsNum()
		if err != nil {
			return nil, err
		}
		if _, err := fmt.Fprintln(out, n); err != nil {
			return nil, err
		}
		return nil, nil
	})

	rt.Register(SysGetChar, 0, func([]values.Value) ([]values.Value, error) {
		var buf [1]byte
		_, err := io.ReadFull(in, buf[:])
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return []values.Value{values.NewNum(opcodes.NumFromInt(-1))}, nil
		}
		if err != nil {
			return nil, err
		}
		return []values.Value{values.NewNum(opcodes.NumFromInt(int32(buf[0])))}, nil
	})
}
