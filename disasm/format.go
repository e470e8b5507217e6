package disasm

import "github.com/h6-lang/h6/opcodes"

// FormatOps renders an op sequence without an image context. Const and
// Jump references print by offset.
func FormatOps(ops []opcodes.Op) (string, error) {
	return (&Disasm{}).Ops(ops)
}
