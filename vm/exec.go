package vm

import (
	"fmt"

	"github.com/h6-lang/h6/opcodes"
	"github.com/h6-lang/h6/values"
)

func (rt *Runtime) pop(pos int) (values.Value, error) {
	if len(rt.stack) == 0 {
		return values.Value{}, errAt(pos, ErrStackUnderflow)
	}
	v := rt.stack[len(rt.stack)-1]
	rt.stack = rt.stack[:len(rt.stack)-1]
	return v, nil
}

func (rt *Runtime) popNum(pos int) (opcodes.Num, error) {
	v, err := rt.pop(pos)
	if err != nil {
		return 0, err
	}
	n, err := v.AsNum()
	if err != nil {
		return 0, errAt(pos, err)
	}
	return n, nil
}

func (rt *Runtime) popArr(pos int) ([]opcodes.Op, error) {
	v, err := rt.pop(pos)
	if err != nil {
		return nil, err
	}
	arr, err := v.AsArr()
	if err != nil {
		return nil, errAt(pos, err)
	}
	return arr, nil
}

func (rt *Runtime) push(v values.Value) {
	rt.stack = append(rt.stack, v)
}

// numBin pops a then b and pushes b⊕a.
func (rt *Runtime) numBin(pos int, f func(b, a opcodes.Num) (opcodes.Num, error)) error {
	a, err := rt.popNum(pos)
	if err != nil {
		return err
	}
	b, err := rt.popNum(pos)
	if err != nil {
		return err
	}
	v, err := f(b, a)
	if err != nil {
		return errAt(pos, err)
	}
	rt.push(values.NewNum(v))
	return nil
}

// bytesToPushArr wraps a serialized byte stream into an array of Push
// ops, one per byte.
func bytesToPushArr(raw []byte) values.Value {
	ops := make([]opcodes.Op, len(raw))
	for i, b := range raw {
		ops[i] = opcodes.Push(opcodes.NumFromInt(int32(b)))
	}
	return values.NewArr(ops)
}

func (rt *Runtime) execOp(pos int, op opcodes.Op) error {
	switch op.Code {
	case opcodes.OP_TERMINATE:
		// decoded streams stop before their terminator; reaching one
		// scheduled explicitly is harmless

	case opcodes.OP_UNRESOLVED:
		return errAt(pos, &UnlinkedSymError{ID: op.Arg})

	case opcodes.OP_CONST, opcodes.OP_JUMP:
		// Jump targets a data-table offset exactly like Const; the ops
		// there are scheduled in front of the remaining work.
		return rt.scheduleConst(pos, op.Arg)

	case opcodes.OP_DSO_CONST:
		return rt.execDsoConst(pos, op.Arg)

	case opcodes.OP_PUSH:
		rt.push(values.NewNum(op.Num()))

	case opcodes.OP_ADD:
		return rt.numBin(pos, func(b, a opcodes.Num) (opcodes.Num, error) { return b.Add(a), nil })
	case opcodes.OP_SUB:
		return rt.numBin(pos, func(b, a opcodes.Num) (opcodes.Num, error) { return b.Sub(a), nil })
	case opcodes.OP_MUL:
		return rt.numBin(pos, func(b, a opcodes.Num) (opcodes.Num, error) { return b.Mul(a), nil })
	case opcodes.OP_DIV:
		return rt.numBin(pos, func(b, a opcodes.Num) (opcodes.Num, error) {
			if a.IsZero() {
				return 0, ErrDivideByZero
			}
			return b.Div(a), nil
		})
	case opcodes.OP_MOD:
		return rt.numBin(pos, func(b, a opcodes.Num) (opcodes.Num, error) {
			if a.IsZero() {
				return 0, ErrDivideByZero
			}
			return b.Mod(a), nil
		})

	case opcodes.OP_FRACT:
		n, err := rt.popNum(pos)
		if err != nil {
			return err
		}
		rt.push(values.NewNum(n.Fract()))

	case opcodes.OP_LT:
		return rt.numBin(pos, func(b, a opcodes.Num) (opcodes.Num, error) { return opcodes.NumBool(b < a), nil })
	case opcodes.OP_GT:
		return rt.numBin(pos, func(b, a opcodes.Num) (opcodes.Num, error) { return opcodes.NumBool(b > a), nil })
	case opcodes.OP_EQ:
		return rt.numBin(pos, func(b, a opcodes.Num) (opcodes.Num, error) { return opcodes.NumBool(b == a), nil })

	case opcodes.OP_NOT:
		n, err := rt.popNum(pos)
		if err != nil {
			return err
		}
		rt.push(values.NewNum(opcodes.NumBool(n.IsZero())))

	case opcodes.OP_DUP:
		v, err := rt.pop(pos)
		if err != nil {
			return err
		}
		rt.push(v)
		rt.push(v)

	case opcodes.OP_SWAP:
		top, err := rt.pop(pos)
		if err != nil {
			return err
		}
		bot, err := rt.pop(pos)
		if err != nil {
			return err
		}
		rt.push(top)
		rt.push(bot)

	case opcodes.OP_POP:
		_, err := rt.pop(pos)
		return err

	case opcodes.OP_ROL:
		t0, err := rt.pop(pos)
		if err != nil {
			return err
		}
		t1, err := rt.pop(pos)
		if err != nil {
			return err
		}
		t2, err := rt.pop(pos)
		if err != nil {
			return err
		}
		rt.push(t1)
		rt.push(t0)
		rt.push(t2)

	case opcodes.OP_ROR:
		t0, err := rt.pop(pos)
		if err != nil {
			return err
		}
		t1, err := rt.pop(pos)
		if err != nil {
			return err
		}
		t2, err := rt.pop(pos)
		if err != nil {
			return err
		}
		rt.push(t0)
		rt.push(t2)
		rt.push(t1)

	case opcodes.OP_REACH:
		down := int(op.Arg)
		if down >= len(rt.stack) {
			return errAt(pos, ErrStackUnderflow)
		}
		rt.push(rt.stack[len(rt.stack)-1-down])

	case opcodes.OP_SELECT:
		cond, err := rt.popNum(pos)
		if err != nil {
			return err
		}
		a, err := rt.pop(pos)
		if err != nil {
			return err
		}
		b, err := rt.pop(pos)
		if err != nil {
			return err
		}
		if cond.IsZero() {
			rt.push(b)
		} else {
			rt.push(a)
		}

	case opcodes.OP_EXEC:
		arr, err := rt.popArr(pos)
		if err != nil {
			return err
		}
		items, err := itemsFromArr(arr)
		if err != nil {
			return err
		}
		rt.scheduleFront(items)

	case opcodes.OP_ARR_BEGIN, opcodes.OP_ARR_END:
		// literals are captured at decode time; a bare delimiter here
		// means a malformed schedule
		return errAt(pos, ErrArrOpenCloseMismatch)

	case opcodes.OP_ARR_CAT:
		b, err := rt.popArr(pos)
		if err != nil {
			return err
		}
		a, err := rt.popArr(pos)
		if err != nil {
			return err
		}
		cat := make([]opcodes.Op, 0, len(a)+len(b))
		cat = append(cat, a...)
		cat = append(cat, b...)
		rt.push(values.NewArr(cat))

	case opcodes.OP_ARR_FIRST:
		arr, err := rt.popArr(pos)
		if err != nil {
			return err
		}
		if len(arr) == 0 {
			return errAt(pos, ErrArrIdxOutOfBounds)
		}
		n, err := values.FirstLen(arr)
		if err != nil {
			return errAt(pos, ErrArrOpenCloseMismatch)
		}
		items, err := itemsFromArr(arr[:n])
		if err != nil {
			return err
		}
		rt.scheduleFront(items)

	case opcodes.OP_ARR_SKIP1:
		arr, err := rt.popArr(pos)
		if err != nil {
			return err
		}
		if len(arr) == 0 {
			return errAt(pos, ErrArrIdxOutOfBounds)
		}
		n, err := values.FirstLen(arr)
		if err != nil {
			return errAt(pos, ErrArrOpenCloseMismatch)
		}
		rt.push(values.NewArr(arr[n:]))

	case opcodes.OP_ARR_LEN:
		arr, err := rt.popArr(pos)
		if err != nil {
			return err
		}
		count, err := values.ElemCount(arr)
		if err != nil {
			return errAt(pos, ErrArrOpenCloseMismatch)
		}
		rt.push(values.NewNum(opcodes.NumFromInt(int32(count))))

	case opcodes.OP_PACK:
		v, err := rt.pop(pos)
		if err != nil {
			return err
		}
		if n, err := v.AsNum(); err == nil {
			rt.push(values.NewArr([]opcodes.Op{opcodes.Push(n)}))
			break
		}
		arr, _ := v.AsArr()
		packed := make([]opcodes.Op, 0, len(arr)+2)
		packed = append(packed, opcodes.Simple(opcodes.OP_ARR_BEGIN))
		packed = append(packed, arr...)
		packed = append(packed, opcodes.Simple(opcodes.OP_ARR_END))
		rt.push(values.NewArr(packed))

	case opcodes.OP_TYPEID:
		v, err := rt.pop(pos)
		if err != nil {
			return err
		}
		if v.Type == values.TypeArr {
			rt.push(values.NewNum(opcodes.NumFromInt(1)))
		} else {
			rt.push(values.NewNum(opcodes.NumFromInt(0)))
		}

	case opcodes.OP_OPS_OF:
		arr, err := rt.popArr(pos)
		if err != nil {
			return err
		}
		rt.push(bytesToPushArr(opcodes.EncodeOps(arr)))

	case opcodes.OP_CONST_AT:
		k, err := rt.popNum(pos)
		if err != nil {
			return err
		}
		it, err := rt.bc.ConstOps(uint32(k.Int()))
		if err != nil {
			return errAt(pos, err)
		}
		ops, err := it.Collect()
		if err != nil {
			return errAt(pos, err)
		}
		rt.push(bytesToPushArr(opcodes.EncodeOps(ops)))

	case opcodes.OP_MATERIALIZE:
		arr, err := rt.popArr(pos)
		if err != nil {
			return err
		}
		items, err := itemsFromArr(arr)
		if err != nil {
			return err
		}
		items = append(items, queueItem{
			kind:     itemMaterializeEnd,
			pos:      -1,
			snapshot: len(rt.stack),
		})
		rt.scheduleFront(items)

	case opcodes.OP_SYSTEM:
		entry, ok := rt.system[op.Arg]
		if !ok {
			return errAt(pos, &SystemFnNotFoundError{ID: op.Arg})
		}
		args := make([]values.Value, entry.arity)
		for i := entry.arity - 1; i >= 0; i-- {
			v, err := rt.pop(pos)
			if err != nil {
				return err
			}
			args[i] = v
		}
		outs, err := entry.fn(args)
		if err != nil {
			return errAt(pos, &SystemFnError{ID: op.Arg, Cause: err})
		}
		rt.stack = append(rt.stack, outs...)

	case opcodes.OP_FRONTEND:
		panic(fmt.Sprintf("vm: frontend placeholder %q reached the interpreter", op.Sym))

	default:
		return errAt(pos, &opcodes.UnknownOpcodeError{Tag: byte(op.Code)})
	}
	return nil
}

// execDsoConst resolves a dynamic symbol through the host hook (lazily,
// cached per index) and schedules the resulting ops.
func (rt *Runtime) execDsoConst(pos int, id uint32) error {
	if ops, ok := rt.dsoCache[id]; ok {
		items, err := itemsFromArr(ops)
		if err != nil {
			return err
		}
		rt.scheduleFront(items)
		return nil
	}
	if int(id) >= len(rt.dsoNames) || rt.dsoResolver == nil {
		return errAt(pos, ErrDsoNotFound)
	}
	ops, err := rt.dsoResolver(rt.dsoNames[id])
	if err != nil {
		return errAt(pos, ErrDsoNotFound)
	}
	rt.dsoCache[id] = ops
	items, err := itemsFromArr(ops)
	if err != nil {
		return err
	}
	rt.scheduleFront(items)
	return nil
}
