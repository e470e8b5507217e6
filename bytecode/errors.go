package bytecode

import "errors"

// Errors produced while decoding object images. Instruction-level
// decode failures (opcodes.ErrNotEnoughBytes, opcodes.ErrUnknownOpcode)
// pass through unchanged so callers can match the whole taxonomy with
// errors.Is.
var (
	ErrInvalidMagic          = errors.New("invalid magic")
	ErrUnsupportedVersion    = errors.New("unsupported version")
	ErrElementNotFound       = errors.New("element not found")
	ErrInvalidStringEncoding = errors.New("invalid string encoding")
)
