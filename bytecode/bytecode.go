package bytecode

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/h6-lang/h6/opcodes"
)

// Export is one globals-table record: a symbol name and the data-table
// offset of its body.
type Export struct {
	// Name is the byte offset of a NUL-terminated string in the data
	// table.
	Name uint32

	// ConstID is the byte offset of a Terminate-terminated op sequence
	// in the data table.
	ConstID uint32
}

// exportSize is the fixed on-disk size of a globals-table record.
const exportSize = 8

// Bytecode is a read view over a loaded object image. It borrows the
// byte slice it was constructed from; mutating the image invalidates
// every iterator and string handed out.
type Bytecode struct {
	Bytes  []byte
	Header Header
}

// Parse validates the header and wraps the image.
func Parse(bytes []byte) (*Bytecode, error) {
	h, err := ParseHeader(bytes)
	if err != nil {
		return nil, err
	}
	return &Bytecode{Bytes: bytes, Header: h}, nil
}

// FromHeader wraps an image whose header was already parsed.
func FromHeader(bytes []byte, h Header) *Bytecode {
	return &Bytecode{Bytes: bytes, Header: h}
}

// DataTable returns the string/constant region of the image. All
// Const, Jump and Unresolved params are offsets into this slice.
func (bc *Bytecode) DataTable() []byte {
	return bc.Bytes[HeaderSize : HeaderSize+int(bc.Header.GlobalsTabOff)]
}

// Globals decodes the globals table.
func (bc *Bytecode) Globals() []Export {
	out := make([]Export, 0, bc.Header.GlobalsTabNum)
	for i := 0; i < int(bc.Header.GlobalsTabNum); i++ {
		off := HeaderSize + int(bc.Header.GlobalsTabOff) + i*exportSize
		out = append(out, Export{
			Name:    binary.LittleEndian.Uint32(bc.Bytes[off : off+4]),
			ConstID: binary.LittleEndian.Uint32(bc.Bytes[off+4 : off+8]),
		})
	}
	return out
}

// NamedGlobal pairs a resolved symbol name with its body offset.
type NamedGlobal struct {
	Name    string
	ConstID uint32
}

// NamedGlobals resolves every globals-table name.
func (bc *Bytecode) NamedGlobals() ([]NamedGlobal, error) {
	globals := bc.Globals()
	out := make([]NamedGlobal, 0, len(globals))
	for _, g := range globals {
		name, err := bc.String(g.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, NamedGlobal{Name: name, ConstID: g.ConstID})
	}
	return out, nil
}

// String reads the NUL-terminated UTF-8 string at the given data-table
// offset.
func (bc *Bytecode) String(off uint32) (string, error) {
	tab := bc.DataTable()
	if int(off) > len(tab) {
		return "", ErrElementNotFound
	}
	sl := tab[off:]
	term := -1
	for i, b := range sl {
		if b == 0 {
			term = i
			break
		}
	}
	if term < 0 {
		return "", ErrInvalidStringEncoding
	}
	if !utf8.Valid(sl[:term]) {
		return "", ErrInvalidStringEncoding
	}
	return string(sl[:term]), nil
}

// ConstOps iterates the op sequence starting at the given data-table
// offset. Reported positions are data-table-relative.
func (bc *Bytecode) ConstOps(off uint32) (*opcodes.OpsIter, error) {
	tab := bc.DataTable()
	if int(off) > len(tab) {
		return nil, ErrElementNotFound
	}
	return opcodes.NewOpsIter(int(off), tab[off:]), nil
}

// MainOpsOffset is the data-table-relative offset at which the main
// code would sit if it were part of the data table; the linker's
// resolution walk uses this as its entry point.
func (bc *Bytecode) MainOpsOffset() int {
	return int(bc.Header.GlobalsTabOff) + int(bc.Header.GlobalsTabNum)*exportSize
}

// MainOps iterates the main instruction stream. Reported positions are
// data-table-relative, continuing past the globals table.
func (bc *Bytecode) MainOps() *opcodes.OpsIter {
	off := bc.MainOpsOffset()
	return opcodes.NewOpsIter(off, bc.Bytes[HeaderSize+off:])
}

// ExtHeader decodes the optional extended header. The second return is
// false when the image carries none.
func (bc *Bytecode) ExtHeader() (ExtendedHeader, bool, error) {
	if bc.Header.ExtHeaderOff == 0 {
		return ExtendedHeader{}, false, nil
	}
	if int(bc.Header.ExtHeaderOff) >= len(bc.Bytes) {
		return ExtendedHeader{}, false, ErrElementNotFound
	}
	ex, err := ParseExtendedHeader(bc.Bytes[bc.Header.ExtHeaderOff:])
	if err != nil {
		return ExtendedHeader{}, false, err
	}
	return ex, true, nil
}

// DsoNameOffsets returns the DSO table: data-table offsets of the
// declared dynamic symbol names, in declaration order. Nil when the
// image has no extended header.
func (bc *Bytecode) DsoNameOffsets() ([]uint32, error) {
	ex, ok, err := bc.ExtHeader()
	if err != nil || !ok {
		return nil, err
	}
	tab := int(bc.Header.ExtHeaderOff) + int(ex.Length)
	end := tab + int(ex.NumDso)*4
	if end > len(bc.Bytes) {
		return nil, ErrElementNotFound
	}
	out := make([]uint32, 0, ex.NumDso)
	for i := 0; i < int(ex.NumDso); i++ {
		out = append(out, binary.LittleEndian.Uint32(bc.Bytes[tab+i*4:tab+i*4+4]))
	}
	return out, nil
}

// DsoNames resolves the DSO table to strings.
func (bc *Bytecode) DsoNames() ([]string, error) {
	offs, err := bc.DsoNameOffsets()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(offs))
	for _, off := range offs {
		name, err := bc.String(off)
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}
