// Package disasm renders object images back into surface syntax.
package disasm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/h6-lang/h6/bytecode"
	"github.com/h6-lang/h6/opcodes"
	"github.com/h6-lang/h6/values"
)

// Disasm formats op sequences of one image.
type Disasm struct {
	bc *bytecode.Bytecode
}

func New(bc *bytecode.Bytecode) *Disasm {
	return &Disasm{bc: bc}
}

// Constant renders the op sequence at a data-table offset.
func (d *Disasm) Constant(off uint32) (string, error) {
	it, err := d.bc.ConstOps(off)
	if err != nil {
		return "", err
	}
	ops, err := it.Collect()
	if err != nil {
		return "", err
	}
	return d.Ops(ops)
}

// Main renders the main instruction stream.
func (d *Disasm) Main() (string, error) {
	ops, err := d.bc.MainOps().Collect()
	if err != nil {
		return "", err
	}
	return d.Ops(ops)
}

// Ops renders a sequence, folding array literals into `{ … }` groups.
func (d *Disasm) Ops(ops []opcodes.Op) (string, error) {
	var out strings.Builder
	for i := 0; i < len(ops); i++ {
		if ops[i].Code == opcodes.OP_ARR_BEGIN {
			n, err := values.FirstLen(ops[i:])
			if err != nil {
				return "", err
			}
			inner, err := d.Ops(ops[i+1 : i+n-1])
			if err != nil {
				return "", err
			}
			if inner == "" {
				out.WriteString("{} ")
			} else {
				out.WriteString("{ ")
				out.WriteString(inner)
				out.WriteString("} ")
			}
			i += n - 1
			continue
		}
		s := d.Op(ops[i])
		if s != "" {
			out.WriteString(s)
			out.WriteString(" ")
		}
	}
	return out.String(), nil
}

// Op renders a single instruction. Structural ops render empty; they
// are expressed by the grouping around them.
func (d *Disasm) Op(op opcodes.Op) string {
	switch op.Code {
	case opcodes.OP_TERMINATE, opcodes.OP_UNRESOLVED,
		opcodes.OP_ARR_BEGIN, opcodes.OP_ARR_END, opcodes.OP_FRONTEND:
		return ""

	// constants are not expanded here: a self-referencing definition
	// would recurse forever
	case opcodes.OP_CONST:
		return fmt.Sprintf("const%d", op.Arg)
	case opcodes.OP_JUMP:
		return fmt.Sprintf("jump%d", op.Arg)
	case opcodes.OP_DSO_CONST:
		return fmt.Sprintf("dso%d", op.Arg)
	case opcodes.OP_SYSTEM:
		return fmt.Sprintf("system%d", op.Arg)
	case opcodes.OP_REACH:
		return fmt.Sprintf("reach%d", op.Arg)
	case opcodes.OP_PUSH:
		return op.Num().String()

	case opcodes.OP_ADD:
		return "+"
	case opcodes.OP_SUB:
		return "-"
	case opcodes.OP_MUL:
		return "*"
	case opcodes.OP_MOD:
		return "%"
	case opcodes.OP_DIV:
		return "/"
	case opcodes.OP_DUP:
		return "."
	case opcodes.OP_SWAP:
		return "$"
	case opcodes.OP_POP:
		return ";"
	case opcodes.OP_EXEC:
		return "!"
	case opcodes.OP_SELECT:
		return "?"
	case opcodes.OP_LT:
		return "<"
	case opcodes.OP_GT:
		return ">"
	case opcodes.OP_EQ:
		return "="
	case opcodes.OP_NOT:
		return "~"
	case opcodes.OP_ROL:
		return "l"
	case opcodes.OP_ROR:
		return "r"
	case opcodes.OP_ARR_CAT:
		return "@+"
	case opcodes.OP_ARR_FIRST:
		return "@0"
	case opcodes.OP_ARR_SKIP1:
		return "@<"
	case opcodes.OP_ARR_LEN:
		return "@*"
	case opcodes.OP_PACK:
		return "_"
	case opcodes.OP_TYPEID:
		return "typeid"
	case opcodes.OP_FRACT:
		return "fract"
	case opcodes.OP_OPS_OF:
		return "opsof"
	case opcodes.OP_CONST_AT:
		return "constat"
	case opcodes.OP_MATERIALIZE:
		return "[!]"
	}
	return op.Code.String()
}

// Dump renders the whole image: globals, reachable constants, main
// code and the DSO table.
func (d *Disasm) Dump() (string, error) {
	var out strings.Builder

	named, err := d.bc.NamedGlobals()
	if err != nil {
		return "", err
	}
	byOff := make(map[uint32]string, len(named))
	for _, g := range named {
		byOff[g.ConstID] = g.Name
	}

	codes, err := bytecode.CodesInDataTable(d.bc)
	if err != nil {
		return "", err
	}
	offs := make([]uint32, 0, len(codes))
	for off := range codes {
		offs = append(offs, off)
	}
	sort.Slice(offs, func(i, j int) bool { return offs[i] < offs[j] })

	for _, off := range offs {
		body, err := d.Constant(off)
		if err != nil {
			return "", err
		}
		if name, ok := byOff[off]; ok {
			fmt.Fprintf(&out, "%6d  %s: %s\n", off, name, body)
		} else {
			fmt.Fprintf(&out, "%6d  %s\n", off, body)
		}
	}

	main, err := d.Main()
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&out, "  main  %s\n", main)

	dso, err := d.bc.DsoNames()
	if err != nil {
		return "", err
	}
	for i, name := range dso {
		fmt.Fprintf(&out, "  dso%-3d %s\n", i, name)
	}
	return out.String(), nil
}
