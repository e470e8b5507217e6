package bytecode

import "github.com/h6-lang/h6/opcodes"

// Writer assembles a fresh object image: strings and constant blocks
// accumulate in the data table in call order, globals and DSO
// declarations are recorded, and Finish lays out the final file. The
// produced header advertises min_reader_version 2 only when a DSO
// table is present.
type Writer struct {
	data    []byte
	globals []NamedGlobal
	main    []opcodes.Op
	dso     []uint32
}

func NewWriter() *Writer {
	return &Writer{}
}

// Pos is the data-table offset the next addition will land at.
func (w *Writer) Pos() uint32 { return uint32(len(w.data)) }

// AddString appends a NUL-terminated string to the data table and
// returns its offset.
func (w *Writer) AddString(s string) uint32 {
	off := w.Pos()
	w.data = append(w.data, s...)
	w.data = append(w.data, 0)
	return off
}

// AddConst appends a Terminate-terminated op sequence to the data
// table and returns its offset.
func (w *Writer) AddConst(ops []opcodes.Op) uint32 {
	off := w.Pos()
	for _, op := range ops {
		w.data = op.Append(w.data)
	}
	w.data = opcodes.Simple(opcodes.OP_TERMINATE).Append(w.data)
	return off
}

// AddGlobal appends the body as a constant and binds name to it.
func (w *Writer) AddGlobal(name string, ops []opcodes.Op) uint32 {
	off := w.AddConst(ops)
	w.BindGlobal(name, off)
	return off
}

// BindGlobal records a globals-table entry for an already-written
// constant. The name string is materialized at Finish time.
func (w *Writer) BindGlobal(name string, constID uint32) {
	w.globals = append(w.globals, NamedGlobal{Name: name, ConstID: constID})
}

// DeclareDso writes the symbol name into the data table and lists it
// in the DSO table.
func (w *Writer) DeclareDso(name string) {
	w.dso = append(w.dso, w.AddString(name))
}

// AppendMain adds ops to the main instruction stream. The terminator
// is emitted by Finish.
func (w *Writer) AppendMain(ops ...opcodes.Op) {
	w.main = append(w.main, ops...)
}

// Finish lays out the image and returns its bytes.
func (w *Writer) Finish() []byte {
	data := make([]byte, len(w.data))
	copy(data, w.data)

	// Global name strings are part of the data table and sit right
	// before the globals table itself.
	nameOffs := make([]uint32, len(w.globals))
	for i, g := range w.globals {
		nameOffs[i] = uint32(len(data))
		data = append(data, g.Name...)
		data = append(data, 0)
	}
	globalsOff := uint32(len(data))

	out := make([]byte, HeaderSize, HeaderSize+len(data)+len(w.globals)*exportSize+len(w.main)*5+1)
	out = append(out, data...)
	for i, g := range w.globals {
		out = append(out,
			byte(nameOffs[i]), byte(nameOffs[i]>>8), byte(nameOffs[i]>>16), byte(nameOffs[i]>>24),
			byte(g.ConstID), byte(g.ConstID>>8), byte(g.ConstID>>16), byte(g.ConstID>>24))
	}
	for _, op := range w.main {
		out = op.Append(out)
	}
	out = opcodes.Simple(opcodes.OP_TERMINATE).Append(out)

	minReader := byte(1)
	extOff := uint32(0)
	if len(w.dso) > 0 {
		minReader = 2
		extOff = uint32(len(out))
		out = append(out, byte(ExtHeaderMinLen), 0)
		n := uint32(len(w.dso))
		out = append(out, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
		for _, off := range w.dso {
			out = append(out, byte(off), byte(off>>8), byte(off>>16), byte(off>>24))
		}
	}

	h := Header{
		MinReaderVersion: minReader,
		WriterVersion:    VERSION,
		GlobalsTabNum:    uint16(len(w.globals)),
		GlobalsTabOff:    globalsOff,
		ExtHeaderOff:     extOff,
	}
	hdr := h.Serialize()
	copy(out[:HeaderSize], hdr[:])
	return out
}
