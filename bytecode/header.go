package bytecode

import (
	"encoding/binary"
	"io"

	"github.com/h6-lang/h6/opcodes"
)

// Format versions. VERSION is what this code writes; readers accept
// any image whose min_reader_version is at or below VERSION.
const (
	VERSION            = 2
	MIN_READER_VERSION = 1
)

// HeaderSize is the fixed size of the main header in bytes.
const HeaderSize = 16

// Magic identifies an H6 object file.
var Magic = [4]byte{'H', '6', 'H', '6'}

// Header is the 16-byte object file header.
//
//	offset  size  field
//	  0     4     magic "H6H6"
//	  4     1     min_reader_version
//	  5     1     writer_version
//	  6     2     globals table entry count (u16 le)
//	  8     4     globals table offset within the data table (u32 le)
//	 12     4     extended header file offset (u32 le, 0 = absent)
type Header struct {
	MinReaderVersion byte
	WriterVersion    byte
	GlobalsTabNum    uint16
	GlobalsTabOff    uint32
	ExtHeaderOff     uint32
}

// ParseHeader decodes and validates the leading header of an image.
func ParseHeader(bytes []byte) (Header, error) {
	if len(bytes) < HeaderSize {
		return Header{}, opcodes.ErrNotEnoughBytes
	}
	if string(bytes[0:4]) != string(Magic[:]) {
		return Header{}, ErrInvalidMagic
	}
	h := Header{
		MinReaderVersion: bytes[4],
		WriterVersion:    bytes[5],
		GlobalsTabNum:    binary.LittleEndian.Uint16(bytes[6:8]),
		GlobalsTabOff:    binary.LittleEndian.Uint32(bytes[8:12]),
		ExtHeaderOff:     binary.LittleEndian.Uint32(bytes[12:16]),
	}
	if h.MinReaderVersion > VERSION {
		return Header{}, ErrUnsupportedVersion
	}
	return h, nil
}

// Serialize renders the header back to its on-disk form.
func (h Header) Serialize() [HeaderSize]byte {
	var out [HeaderSize]byte
	copy(out[0:4], Magic[:])
	out[4] = h.MinReaderVersion
	out[5] = h.WriterVersion
	binary.LittleEndian.PutUint16(out[6:8], h.GlobalsTabNum)
	binary.LittleEndian.PutUint32(out[8:12], h.GlobalsTabOff)
	binary.LittleEndian.PutUint32(out[12:16], h.ExtHeaderOff)
	return out
}

// WriteTo writes the serialized header to w.
func (h Header) WriteTo(w io.Writer) error {
	buf := h.Serialize()
	_, err := w.Write(buf[:])
	return err
}

// ExtHeaderMinLen is the smallest valid extended header length: the
// length field itself plus the DSO count.
const ExtHeaderMinLen = 6

// ExtendedHeader prefixes the DSO name table of a version-2 image.
// Length counts the length field and NumDso; future fields append, so
// readers skip Length bytes from the header start to reach the table.
type ExtendedHeader struct {
	Length uint16
	NumDso uint32
}

// ParseExtendedHeader decodes an extended header starting at the
// beginning of bytes.
func ParseExtendedHeader(bytes []byte) (ExtendedHeader, error) {
	if len(bytes) < ExtHeaderMinLen {
		return ExtendedHeader{}, ErrElementNotFound
	}
	ex := ExtendedHeader{
		Length: binary.LittleEndian.Uint16(bytes[0:2]),
		NumDso: binary.LittleEndian.Uint32(bytes[2:6]),
	}
	if ex.Length < ExtHeaderMinLen {
		return ExtendedHeader{}, ErrElementNotFound
	}
	return ex, nil
}

// WriteTo writes the extended header (without the name table).
func (ex ExtendedHeader) WriteTo(w io.Writer) error {
	var buf [ExtHeaderMinLen]byte
	length := ex.Length
	if length == 0 {
		length = ExtHeaderMinLen
	}
	binary.LittleEndian.PutUint16(buf[0:2], length)
	binary.LittleEndian.PutUint32(buf[2:6], ex.NumDso)
	_, err := w.Write(buf[:])
	return err
}
