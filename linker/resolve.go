package linker

import (
	"github.com/pkg/errors"

	"github.com/h6-lang/h6/bytecode"
	"github.com/h6-lang/h6/opcodes"
)

// SelfResolve patches every reachable Unresolved op in the image:
// names matching a defined global become Const, names matching a
// declared DSO become DsoConst, and anything else must be permitted by
// the target or the link fails. All rewrites overwrite the five bytes
// of the placeholder in place, so the image never changes size.
// Resolving an already-resolved image is a no-op.
func SelfResolve(bin []byte, target Target) error {
	bc, err := bytecode.Parse(bin)
	if err != nil {
		return errors.Wrap(err, "reading object")
	}

	decls := make(map[string]uint32)
	named, err := bc.NamedGlobals()
	if err != nil {
		return errors.Wrap(err, "reading globals table")
	}
	for _, g := range named {
		if _, dup := decls[g.Name]; dup {
			return &SymbolDefinedTwiceError{Name: g.Name}
		}
		decls[g.Name] = g.ConstID
	}

	dso := make(map[string]uint32)
	dsoNames, err := bc.DsoNames()
	if err != nil {
		return errors.Wrap(err, "reading DSO table")
	}
	for i, name := range dsoNames {
		dso[name] = uint32(i)
	}

	// Walk every op position reachable from the main code and the
	// global bodies. Offsets are data-table-relative; the main stream
	// sits past the globals table and is addressed the same way.
	done := make(map[int]struct{})
	todo := []int{bc.MainOpsOffset()}
	for _, constID := range decls {
		todo = append(todo, int(constID))
	}

	type patch struct {
		pos int
		op  opcodes.Op
	}

	for len(todo) > 0 {
		off := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		if _, seen := done[off]; seen {
			continue
		}

		var toWrite []patch
		it := opcodes.NewOpsIter(off, bin[bytecode.HeaderSize+off:])
		for {
			pos, op, ok := it.Next()
			if !ok {
				break
			}
			done[pos] = struct{}{}
			switch op.Code {
			case opcodes.OP_UNRESOLVED:
				name, err := bc.String(op.Arg)
				if err != nil {
					return errors.Wrap(err, "reading symbol name")
				}
				if constID, ok := decls[name]; ok {
					toWrite = append(toWrite, patch{pos: pos, op: opcodes.Const(constID)})
				} else if idx, ok := dso[name]; ok {
					toWrite = append(toWrite, patch{pos: pos, op: opcodes.DsoConst(idx)})
				} else if !target.AllowUndeclaredSymbol(name) {
					return &SymbolNotFoundError{Name: name}
				}
			case opcodes.OP_CONST:
				if _, seen := done[int(op.Arg)]; !seen {
					todo = append(todo, int(op.Arg))
				}
			}
		}
		if err := it.Err(); err != nil {
			return errors.Wrap(err, "walking code")
		}

		for _, p := range toWrite {
			enc := p.op.Append(nil)
			copy(bin[bytecode.HeaderSize+p.pos:bytecode.HeaderSize+p.pos+len(enc)], enc)
		}
	}
	return nil
}
