package linker

import (
	"errors"
	"fmt"
)

// Link-level failures. I/O and bytecode decode errors pass through
// wrapped, so errors.Is still reaches the underlying cause.
var ErrVersionMismatch = errors.New("object writer versions differ")

// SymbolDefinedTwiceError reports a duplicate globals-table name.
type SymbolDefinedTwiceError struct {
	Name string
}

func (e *SymbolDefinedTwiceError) Error() string {
	return fmt.Sprintf("symbol %q defined twice", e.Name)
}

// SymbolNotFoundError reports an unresolved reference that the link
// target does not permit to stay undeclared.
type SymbolNotFoundError struct {
	Name string
}

func (e *SymbolNotFoundError) Error() string {
	return fmt.Sprintf("symbol %q not found", e.Name)
}
