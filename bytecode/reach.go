package bytecode

import "github.com/h6-lang/h6/opcodes"

// CodesInDataTable computes the set of data-table offsets at which a
// reachable op sequence begins, walking Const and Jump targets from
// the main code and from every global's body. The walk is iterative
// and keyed by offset, so reference cycles terminate.
func CodesInDataTable(bc *Bytecode) (map[uint32]struct{}, error) {
	visited := make(map[uint32]struct{})
	var todo []uint32

	for _, g := range bc.Globals() {
		todo = append(todo, g.ConstID)
	}

	scan := func(it *opcodes.OpsIter) error {
		for {
			_, op, ok := it.Next()
			if !ok {
				break
			}
			switch op.Code {
			case opcodes.OP_CONST, opcodes.OP_JUMP:
				if _, seen := visited[op.Arg]; !seen {
					todo = append(todo, op.Arg)
				}
			}
		}
		return it.Err()
	}

	if err := scan(bc.MainOps()); err != nil {
		return nil, err
	}

	for len(todo) > 0 {
		off := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		if _, seen := visited[off]; seen {
			continue
		}
		visited[off] = struct{}{}
		it, err := bc.ConstOps(off)
		if err != nil {
			return nil, err
		}
		if err := scan(it); err != nil {
			return nil, err
		}
	}
	return visited, nil
}
