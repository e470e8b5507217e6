package linker

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/h6-lang/h6/bytecode"
	"github.com/h6-lang/h6/opcodes"
)

// Concatenate merges the src object into dst, which must be a
// read/write/seekable stream whose current contents begin with a valid
// object image. The source's data table is appended behind the
// destination's with every reachable reference rebased, the globals
// tables and main code streams are spliced, and the header is
// rewritten last. On error the destination may be partially written;
// callers should work on a temporary and rename on success.
//
// After concatenating all inputs, run SelfResolve on the result.
func Concatenate(dst io.ReadWriteSeeker, src []byte) error {
	srcBC, err := bytecode.Parse(src)
	if err != nil {
		return errors.Wrap(err, "reading source object")
	}

	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "seeking destination")
	}
	var rawHeader [bytecode.HeaderSize]byte
	if _, err := io.ReadFull(dst, rawHeader[:]); err != nil {
		return errors.Wrap(err, "reading destination header")
	}
	outHeader, err := bytecode.ParseHeader(rawHeader[:])
	if err != nil {
		return errors.Wrap(err, "reading destination header")
	}
	if outHeader.WriterVersion != srcBC.Header.WriterVersion {
		return ErrVersionMismatch
	}

	// The source's data table lands at this displacement inside the
	// merged data table; every source-internal reference moves by it.
	shift := outHeader.GlobalsTabOff

	// Everything after the destination's data table gets rebuilt, so
	// slurp it before overwriting.
	outRemOff := int64(bytecode.HeaderSize) + int64(outHeader.GlobalsTabOff)
	if _, err := dst.Seek(outRemOff, io.SeekStart); err != nil {
		return errors.Wrap(err, "seeking destination")
	}
	outRem, err := io.ReadAll(dst)
	if err != nil {
		return errors.Wrap(err, "reading destination")
	}

	var outDsoOffs []uint32
	if outHeader.ExtHeaderOff != 0 {
		exStart := int(int64(outHeader.ExtHeaderOff) - outRemOff)
		if exStart < 0 || exStart > len(outRem) {
			return errors.Wrap(bytecode.ErrElementNotFound, "destination extended header")
		}
		ex, err := bytecode.ParseExtendedHeader(outRem[exStart:])
		if err != nil {
			return errors.Wrap(err, "destination extended header")
		}
		tab := exStart + int(ex.Length)
		if tab+int(ex.NumDso)*4 > len(outRem) {
			return errors.Wrap(bytecode.ErrElementNotFound, "destination DSO table")
		}
		for i := 0; i < int(ex.NumDso); i++ {
			outDsoOffs = append(outDsoOffs, binary.LittleEndian.Uint32(outRem[tab+i*4:tab+i*4+4]))
		}
	}

	// Rebase every reachable code block of the source in a scratch
	// copy of its data table. All rewrites are fixed-width, so byte
	// positions are stable.
	newDataTab := make([]byte, len(srcBC.DataTable()))
	copy(newDataTab, srcBC.DataTable())
	codes, err := bytecode.CodesInDataTable(srcBC)
	if err != nil {
		return errors.Wrap(err, "scanning source object")
	}
	for code := range codes {
		it, err := srcBC.ConstOps(code)
		if err != nil {
			return errors.Wrap(err, "scanning source object")
		}
		for {
			pos, op, ok := it.Next()
			if !ok {
				break
			}
			enc := op.Shift(shift).Append(nil)
			copy(newDataTab[pos:pos+len(enc)], enc)
		}
		if err := it.Err(); err != nil {
			return errors.Wrap(err, "scanning source object")
		}
	}

	if _, err := dst.Seek(outRemOff, io.SeekStart); err != nil {
		return errors.Wrap(err, "seeking destination")
	}
	w := &countingWriter{w: dst, off: outRemOff}
	if _, err := w.Write(newDataTab); err != nil {
		return errors.Wrap(err, "writing merged data table")
	}

	newGlobalsBegin := w.off
	newGlobalsNum := outHeader.GlobalsTabNum + srcBC.Header.GlobalsTabNum

	if _, err := w.Write(outRem[:int(outHeader.GlobalsTabNum)*8]); err != nil {
		return errors.Wrap(err, "writing globals table")
	}
	for _, g := range srcBC.Globals() {
		var rec [8]byte
		binary.LittleEndian.PutUint32(rec[0:4], g.Name+shift)
		binary.LittleEndian.PutUint32(rec[4:8], g.ConstID+shift)
		if _, err := w.Write(rec[:]); err != nil {
			return errors.Wrap(err, "writing globals table")
		}
	}

	// Destination main code keeps its references; its terminator is
	// dropped so the source main runs directly after it.
	outMain := opcodes.NewOpsIter(0, outRem[int(outHeader.GlobalsTabNum)*8:])
	for {
		_, op, ok := outMain.Next()
		if !ok {
			break
		}
		if err := op.WriteTo(w); err != nil {
			return errors.Wrap(err, "writing main code")
		}
	}
	if err := outMain.Err(); err != nil {
		return errors.Wrap(err, "reading destination main code")
	}
	srcMain := srcBC.MainOps()
	for {
		_, op, ok := srcMain.Next()
		if !ok {
			break
		}
		if err := op.Shift(shift).WriteTo(w); err != nil {
			return errors.Wrap(err, "writing main code")
		}
	}
	if err := srcMain.Err(); err != nil {
		return errors.Wrap(err, "reading source main code")
	}
	if err := opcodes.Simple(opcodes.OP_TERMINATE).WriteTo(w); err != nil {
		return errors.Wrap(err, "writing main code")
	}

	// Merged DSO table: source names first (their strings moved with
	// the data table, so the offsets shift too), then the
	// destination's, unchanged.
	srcDso, err := srcBC.DsoNameOffsets()
	if err != nil {
		return errors.Wrap(err, "reading source DSO table")
	}
	newDso := make([]uint32, 0, len(srcDso)+len(outDsoOffs))
	for _, off := range srcDso {
		newDso = append(newDso, off+shift)
	}
	newDso = append(newDso, outDsoOffs...)

	extOff := uint32(0)
	minReader := outHeader.MinReaderVersion
	if len(newDso) > 0 {
		extOff = uint32(w.off)
		ex := bytecode.ExtendedHeader{Length: bytecode.ExtHeaderMinLen, NumDso: uint32(len(newDso))}
		if err := ex.WriteTo(w); err != nil {
			return errors.Wrap(err, "writing DSO table")
		}
		for _, off := range newDso {
			var rec [4]byte
			binary.LittleEndian.PutUint32(rec[:], off)
			if _, err := w.Write(rec[:]); err != nil {
				return errors.Wrap(err, "writing DSO table")
			}
		}
		if minReader < 2 {
			minReader = 2
		}
	}

	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "seeking destination")
	}
	newHeader := bytecode.Header{
		MinReaderVersion: minReader,
		WriterVersion:    outHeader.WriterVersion,
		GlobalsTabNum:    newGlobalsNum,
		GlobalsTabOff:    uint32(newGlobalsBegin) - bytecode.HeaderSize,
		ExtHeaderOff:     extOff,
	}
	if err := newHeader.WriteTo(dst); err != nil {
		return errors.Wrap(err, "writing header")
	}
	return nil
}

// countingWriter tracks the absolute file offset across writes.
type countingWriter struct {
	w   io.Writer
	off int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.off += int64(n)
	return n, err
}
