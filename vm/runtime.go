package vm

import (
	"github.com/h6-lang/h6/bytecode"
	"github.com/h6-lang/h6/opcodes"
	"github.com/h6-lang/h6/values"
)

// itemKind discriminates queue entries: decoded instructions plus the
// two runtime-synthesized ops that never appear in an object file.
type itemKind byte

const (
	itemOp itemKind = iota

	// itemPushValue pushes a value captured earlier (array literals).
	itemPushValue

	// itemMaterializeEnd drains everything pushed since the snapshot
	// into a single array value.
	itemMaterializeEnd
)

// queueItem is one unit of scheduled work.
type queueItem struct {
	kind itemKind
	op   opcodes.Op

	// pos is the data-table-relative byte offset of the op, or -1 for
	// ops scheduled out of in-memory arrays.
	pos int

	val      values.Value
	snapshot int
}

// posOp pairs an op with its byte offset (-1 when unknown).
type posOp struct {
	pos int
	op  opcodes.Op
}

// SystemFn is a host system-call handler. args[0] is the deepest
// operand (the last one popped); returned values are pushed back in
// slice order.
type SystemFn func(args []values.Value) ([]values.Value, error)

type systemEntry struct {
	arity int
	fn    SystemFn
}

// DsoResolver supplies the ops behind a declared dynamic symbol.
type DsoResolver func(name string) ([]opcodes.Op, error)

// Runtime is the stack-machine interpreter: a work queue of scheduled
// instructions and a value stack. It borrows the object image
// immutably for its whole lifetime.
type Runtime struct {
	bc    *bytecode.Bytecode
	queue []queueItem
	stack []values.Value

	system map[uint32]systemEntry

	dsoNames    []string
	dsoResolver DsoResolver
	dsoCache    map[uint32][]opcodes.Op
}

// New decodes the image's main instruction stream into the work queue.
// Array literals are captured eagerly during decoding.
func New(bc *bytecode.Bytecode) (*Runtime, error) {
	rt := &Runtime{
		bc:       bc,
		system:   make(map[uint32]systemEntry),
		dsoCache: make(map[uint32][]opcodes.Op),
	}
	dsoNames, err := bc.DsoNames()
	if err != nil {
		return nil, errAt(-1, err)
	}
	rt.dsoNames = dsoNames

	items, err := rt.itemsFromIter(bc.MainOps())
	if err != nil {
		return nil, err
	}
	rt.queue = items
	return rt, nil
}

// Register installs a system-call handler. The handler table is meant
// to be fixed before the first Step.
func (rt *Runtime) Register(id uint32, arity int, fn SystemFn) *Runtime {
	rt.system[id] = systemEntry{arity: arity, fn: fn}
	return rt
}

// SetDsoResolver installs the host hook behind DsoConst. Resolution is
// lazy: the hook runs at the first dispatch of each DSO index and the
// result is cached.
func (rt *Runtime) SetDsoResolver(r DsoResolver) *Runtime {
	rt.dsoResolver = r
	return rt
}

// Stack exposes the value stack, bottom first.
func (rt *Runtime) Stack() []values.Value { return rt.stack }

// Halted reports whether the work queue is empty.
func (rt *Runtime) Halted() bool { return len(rt.queue) == 0 }

// Step dequeues and executes exactly one op. It returns false without
// error once the machine has halted.
func (rt *Runtime) Step() (bool, error) {
	if len(rt.queue) == 0 {
		return false, nil
	}
	item := rt.queue[0]
	rt.queue = rt.queue[1:]

	switch item.kind {
	case itemPushValue:
		rt.stack = append(rt.stack, item.val)
		return true, nil
	case itemMaterializeEnd:
		if err := rt.finishMaterialize(item.snapshot); err != nil {
			return true, err
		}
		return true, nil
	}
	if err := rt.execOp(item.pos, item.op); err != nil {
		return true, err
	}
	return true, nil
}

// Run steps the machine until it halts or fails.
func (rt *Runtime) Run() error {
	for {
		ok, err := rt.Step()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// scheduleFront prepends items so the first of them executes next.
func (rt *Runtime) scheduleFront(items []queueItem) {
	if len(items) == 0 {
		return
	}
	q := make([]queueItem, 0, len(items)+len(rt.queue))
	q = append(q, items...)
	q = append(q, rt.queue...)
	rt.queue = q
}

// buildItems turns a decoded op sequence into queue entries, capturing
// every top-level array literal into a value. Capture is lexical and
// eager; the ops inside an array are not executed.
func buildItems(ops []posOp) ([]queueItem, error) {
	items := make([]queueItem, 0, len(ops))
	for i := 0; i < len(ops); i++ {
		cur := ops[i]
		switch cur.op.Code {
		case opcodes.OP_ARR_BEGIN:
			depth := 1
			j := i + 1
			var arr []opcodes.Op
			for ; j < len(ops); j++ {
				switch ops[j].op.Code {
				case opcodes.OP_ARR_BEGIN:
					depth++
				case opcodes.OP_ARR_END:
					depth--
				}
				if depth == 0 {
					break
				}
				arr = append(arr, ops[j].op)
			}
			if depth != 0 {
				return nil, errAt(cur.pos, ErrArrOpenCloseMismatch)
			}
			items = append(items, queueItem{
				kind: itemPushValue,
				pos:  cur.pos,
				val:  values.NewArr(arr),
			})
			i = j
		case opcodes.OP_ARR_END:
			return nil, errAt(cur.pos, ErrArrOpenCloseMismatch)
		default:
			items = append(items, queueItem{kind: itemOp, pos: cur.pos, op: cur.op})
		}
	}
	return items, nil
}

// itemsFromIter drains an instruction iterator into queue entries.
func (rt *Runtime) itemsFromIter(it *opcodes.OpsIter) ([]queueItem, error) {
	var ops []posOp
	for {
		pos, op, ok := it.Next()
		if !ok {
			break
		}
		ops = append(ops, posOp{pos: pos, op: op})
	}
	if err := it.Err(); err != nil {
		return nil, errAt(it.Pos(), err)
	}
	return buildItems(ops)
}

// itemsFromArr builds queue entries out of an in-memory array value.
func itemsFromArr(ops []opcodes.Op) ([]queueItem, error) {
	wrapped := make([]posOp, len(ops))
	for i, op := range ops {
		wrapped[i] = posOp{pos: -1, op: op}
	}
	return buildItems(wrapped)
}

// scheduleConst schedules the constant at the given data-table offset.
func (rt *Runtime) scheduleConst(pos int, off uint32) error {
	it, err := rt.bc.ConstOps(off)
	if err != nil {
		return errAt(pos, err)
	}
	items, err := rt.itemsFromIter(it)
	if err != nil {
		return err
	}
	rt.scheduleFront(items)
	return nil
}

// finishMaterialize packs everything pushed since the snapshot into a
// single array value.
func (rt *Runtime) finishMaterialize(snapshot int) error {
	if len(rt.stack) < snapshot {
		return errAt(-1, ErrCapturedTooMuch)
	}
	produced := rt.stack[snapshot:]
	var ops []opcodes.Op
	for _, v := range produced {
		if n, err := v.AsNum(); err == nil {
			ops = append(ops, opcodes.Push(n))
			continue
		}
		arr, _ := v.AsArr()
		ops = append(ops, opcodes.Simple(opcodes.OP_ARR_BEGIN))
		ops = append(ops, arr...)
		ops = append(ops, opcodes.Simple(opcodes.OP_ARR_END))
	}
	rt.stack = rt.stack[:snapshot]
	rt.stack = append(rt.stack, values.NewArr(ops))
	return nil
}
