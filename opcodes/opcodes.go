package opcodes

import (
	"fmt"
	"io"
)

// Opcode is the one-byte instruction tag. Tag values are part of the
// object file format and must not be reordered.
type Opcode byte

// Terminators and references (0-8)
const (
	OP_TERMINATE  Opcode = 0 // end of constant or main code, never executed
	OP_UNRESOLVED Opcode = 1 // param: byte offset of a symbol name in the data table
	OP_CONST      Opcode = 2 // param: byte offset of a constant in the data table
	OP_TYPEID     Opcode = 3
	OP_PUSH       Opcode = 8 // param: fixed-point number, little endian
)

// Arithmetic and stack manipulation (9-25)
const (
	OP_ADD    Opcode = 9
	OP_SUB    Opcode = 10
	OP_MUL    Opcode = 11
	OP_DUP    Opcode = 12
	OP_SWAP   Opcode = 14
	OP_POP    Opcode = 15
	OP_EXEC   Opcode = 16
	OP_SELECT Opcode = 17
	OP_LT     Opcode = 18
	OP_GT     Opcode = 19
	OP_EQ     Opcode = 20
	OP_NOT    Opcode = 21
	OP_ROL    Opcode = 22
	OP_ROR    Opcode = 24
	OP_REACH  Opcode = 25 // param: how many elements below the top
)

// Array operations (26-33)
const (
	OP_ARR_BEGIN Opcode = 26 // ops until the matching OP_ARR_END form an array
	OP_ARR_END   Opcode = 27
	OP_ARR_CAT   Opcode = 29
	OP_ARR_FIRST Opcode = 30
	OP_ARR_LEN   Opcode = 31
	OP_ARR_SKIP1 Opcode = 32
	OP_PACK      Opcode = 33
)

// Extended arithmetic and control (34-45)
const (
	OP_MOD         Opcode = 34
	OP_FRACT       Opcode = 35
	OP_DIV         Opcode = 36
	OP_JUMP        Opcode = 40 // param: byte offset of a constant in the data table
	OP_SYSTEM      Opcode = 41 // param: host system call id
	OP_MATERIALIZE Opcode = 42
	OP_OPS_OF      Opcode = 43
	OP_CONST_AT    Opcode = 44
	OP_DSO_CONST   Opcode = 45 // param: index into the DSO name table
)

// OP_FRONTEND is a compiler-internal placeholder for a not-yet-lowered
// symbol reference. It carries the symbol name instead of a numeric
// param and must never appear in a serialized object.
const OP_FRONTEND Opcode = 0xff

// opcodeNames maps tags to their mnemonic, used for diagnostics.
var opcodeNames = map[Opcode]string{
	OP_TERMINATE:   "terminate",
	OP_UNRESOLVED:  "unresolved",
	OP_CONST:       "const",
	OP_TYPEID:      "typeid",
	OP_PUSH:        "push",
	OP_ADD:         "add",
	OP_SUB:         "sub",
	OP_MUL:         "mul",
	OP_DUP:         "dup",
	OP_SWAP:        "swap",
	OP_POP:         "pop",
	OP_EXEC:        "exec",
	OP_SELECT:      "select",
	OP_LT:          "lt",
	OP_GT:          "gt",
	OP_EQ:          "eq",
	OP_NOT:         "not",
	OP_ROL:         "rol",
	OP_ROR:         "ror",
	OP_REACH:       "reach",
	OP_ARR_BEGIN:   "arrbegin",
	OP_ARR_END:     "arrend",
	OP_ARR_CAT:     "arrcat",
	OP_ARR_FIRST:   "arrfirst",
	OP_ARR_LEN:     "arrlen",
	OP_ARR_SKIP1:   "arrskip1",
	OP_PACK:        "pack",
	OP_MOD:         "mod",
	OP_FRACT:       "fract",
	OP_DIV:         "div",
	OP_JUMP:        "jump",
	OP_SYSTEM:      "system",
	OP_MATERIALIZE: "materialize",
	OP_OPS_OF:      "opsof",
	OP_CONST_AT:    "constat",
	OP_DSO_CONST:   "dsoconst",
	OP_FRONTEND:    "frontend",
}

// Valid reports whether the tag is part of the serialized opcode set.
func (c Opcode) Valid() bool {
	_, ok := opcodeNames[c]
	return ok && c != OP_FRONTEND
}

// HasParam reports whether the tag is followed by a 4-byte LE param.
func (c Opcode) HasParam() bool {
	switch c {
	case OP_UNRESOLVED, OP_CONST, OP_PUSH, OP_REACH, OP_SYSTEM, OP_DSO_CONST, OP_JUMP:
		return true
	}
	return false
}

func (c Opcode) String() string {
	if name, ok := opcodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("opcode(%d)", byte(c))
}

// Op is a single decoded instruction. Parameterized instructions carry
// their argument in Arg; OP_PUSH stores the raw bits of the pushed
// number there. Sym is only set on OP_FRONTEND placeholders.
type Op struct {
	Code Opcode
	Arg  uint32
	Sym  string
}

// Constructors for the parameterized instructions.

func Push(val Num) Op         { return Op{Code: OP_PUSH, Arg: uint32(val)} }
func Const(idx uint32) Op     { return Op{Code: OP_CONST, Arg: idx} }
func Unresolved(id uint32) Op { return Op{Code: OP_UNRESOLVED, Arg: id} }
func Jump(idx uint32) Op      { return Op{Code: OP_JUMP, Arg: idx} }
func Reach(down uint32) Op    { return Op{Code: OP_REACH, Arg: down} }
func System(id uint32) Op     { return Op{Code: OP_SYSTEM, Arg: id} }
func DsoConst(id uint32) Op   { return Op{Code: OP_DSO_CONST, Arg: id} }

// Simple builds an instruction without a param.
func Simple(code Opcode) Op { return Op{Code: code} }

// Frontend builds a compiler placeholder for the named symbol.
func Frontend(sym string) Op { return Op{Code: OP_FRONTEND, Sym: sym} }

// Num returns the fixed-point value carried by an OP_PUSH.
func (op Op) Num() Num { return Num(int32(op.Arg)) }

// EncodedLen returns the number of bytes the instruction occupies on
// disk.
func (op Op) EncodedLen() int {
	if op.Code.HasParam() {
		return 5
	}
	return 1
}

// Shift rebases the data-table references of the instruction by the
// given byte displacement. Non-reference instructions are returned
// unchanged.
func (op Op) Shift(by uint32) Op {
	switch op.Code {
	case OP_UNRESOLVED, OP_CONST, OP_JUMP:
		op.Arg += by
	}
	return op
}

// Append encodes the instruction onto dst. OP_FRONTEND placeholders
// are not encodable; encoding one panics because it means the compiler
// leaked an unlowered op into a serialization path.
func (op Op) Append(dst []byte) []byte {
	if op.Code == OP_FRONTEND {
		panic("opcodes: attempt to encode frontend placeholder " + op.Sym)
	}
	dst = append(dst, byte(op.Code))
	if op.Code.HasParam() {
		dst = append(dst,
			byte(op.Arg),
			byte(op.Arg>>8),
			byte(op.Arg>>16),
			byte(op.Arg>>24))
	}
	return dst
}

// WriteTo encodes the instruction to w.
func (op Op) WriteTo(w io.Writer) error {
	buf := op.Append(make([]byte, 0, 5))
	_, err := w.Write(buf)
	return err
}

func (op Op) String() string {
	switch {
	case op.Code == OP_FRONTEND:
		return fmt.Sprintf("frontend(%s)", op.Sym)
	case op.Code == OP_PUSH:
		return fmt.Sprintf("push %s", op.Num())
	case op.Code.HasParam():
		return fmt.Sprintf("%s %d", op.Code, op.Arg)
	}
	return op.Code.String()
}

// EncodeOps encodes a sequence of instructions without a trailing
// terminator.
func EncodeOps(ops []Op) []byte {
	out := make([]byte, 0, len(ops)*5)
	for _, op := range ops {
		out = op.Append(out)
	}
	return out
}
