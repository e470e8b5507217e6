package opcodes

import (
	"errors"
	"fmt"
)

// Decode-level errors. The higher layers (bytecode, linker, vm) do not
// translate these: they return them as-is or keep them as the cause of
// a contextual wrapper, so errors.Is matches them at every layer.
var (
	ErrNotEnoughBytes = errors.New("not enough bytes")
	ErrUnknownOpcode  = errors.New("unknown opcode")
)

// UnknownOpcodeError reports the offending tag byte.
type UnknownOpcodeError struct {
	Tag byte
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode 0x%02x", e.Tag)
}

func (e *UnknownOpcodeError) Unwrap() error { return ErrUnknownOpcode }

// ReadOne decodes a single instruction from the front of bytes. The
// slice may be longer than the instruction. The first return reports
// whether a param was consumed.
func ReadOne(bytes []byte) (bool, Op, error) {
	if len(bytes) < 1 {
		return false, Op{}, ErrNotEnoughBytes
	}
	code := Opcode(bytes[0])
	if !code.Valid() {
		return false, Op{}, &UnknownOpcodeError{Tag: bytes[0]}
	}
	if !code.HasParam() {
		return false, Op{Code: code}, nil
	}
	if len(bytes) < 5 {
		return false, Op{}, ErrNotEnoughBytes
	}
	arg := uint32(bytes[1]) |
		uint32(bytes[2])<<8 |
		uint32(bytes[3])<<16 |
		uint32(bytes[4])<<24
	return true, Op{Code: code, Arg: arg}, nil
}

// OpsIter walks an instruction stream up to (and consuming, but not
// yielding) the first OP_TERMINATE. Positions reported by Next are
// base-relative byte offsets, where base is whatever reference point
// the caller constructed the iterator with. After a decode error the
// iterator yields nothing further; the error is available from Err.
type OpsIter struct {
	base int
	rest []byte
	err  error
	done bool
}

// NewOpsIter returns an iterator over bytes whose first instruction
// sits at absolute offset base.
func NewOpsIter(base int, bytes []byte) *OpsIter {
	return &OpsIter{base: base, rest: bytes}
}

// Next yields the next instruction and its byte offset. ok is false
// once the stream terminated or failed; check Err afterwards.
func (it *OpsIter) Next() (pos int, op Op, ok bool) {
	if it.done {
		return 0, Op{}, false
	}
	hadParam, op, err := ReadOne(it.rest)
	if err != nil {
		it.err = err
		it.done = true
		return 0, Op{}, false
	}
	if op.Code == OP_TERMINATE {
		it.done = true
		return 0, Op{}, false
	}
	pos = it.base
	if hadParam {
		it.base += 5
		it.rest = it.rest[5:]
	} else {
		it.base++
		it.rest = it.rest[1:]
	}
	return pos, op, true
}

// Pos returns the offset of the next undecoded byte.
func (it *OpsIter) Pos() int { return it.base }

// Err returns the decode error that stopped the iterator, if any.
func (it *OpsIter) Err() error { return it.err }

// Collect drains the iterator into a slice.
func (it *OpsIter) Collect() ([]Op, error) {
	var ops []Op
	for {
		_, op, ok := it.Next()
		if !ok {
			break
		}
		ops = append(ops, op)
	}
	return ops, it.Err()
}
