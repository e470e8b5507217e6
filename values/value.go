package values

import (
	"errors"
	"strings"

	"github.com/h6-lang/h6/opcodes"
)

// ValueType discriminates the two runtime value kinds.
type ValueType byte

const (
	TypeNum ValueType = iota
	TypeArr
)

// Errors surfaced by value conversions and array scanning.
var (
	// ErrNotSupported reports a numeric op applied to an array or an
	// array op applied to a number.
	ErrNotSupported = errors.New("op does not support operand type")

	// ErrArrEndMismatch reports an array delimiter without a matching
	// opener/closer inside an op sequence.
	ErrArrEndMismatch = errors.New("array begin/end mismatch")
)

// Value is a runtime value: a fixed-point number or an array of ops.
// An array is the canonical form of both data and quoted code; the
// outermost begin/end delimiters are not stored.
type Value struct {
	Type ValueType
	num  opcodes.Num
	arr  []opcodes.Op
}

func NewNum(n opcodes.Num) Value { return Value{Type: TypeNum, num: n} }

func NewArr(ops []opcodes.Op) Value { return Value{Type: TypeArr, arr: ops} }

// AsNum unwraps a number.
func (v Value) AsNum() (opcodes.Num, error) {
	if v.Type != TypeNum {
		return 0, ErrNotSupported
	}
	return v.num, nil
}

// AsArr unwraps an array. The returned slice is the value's backing
// storage; callers that mutate must copy first.
func (v Value) AsArr() ([]opcodes.Op, error) {
	if v.Type != TypeArr {
		return nil, ErrNotSupported
	}
	return v.arr, nil
}

// Equal is structural equality.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	if v.Type == TypeNum {
		return v.num == o.num
	}
	if len(v.arr) != len(o.arr) {
		return false
	}
	for i := range v.arr {
		if v.arr[i] != o.arr[i] {
			return false
		}
	}
	return true
}

func (v Value) String() string {
	if v.Type == TypeNum {
		return v.num.String()
	}
	var b strings.Builder
	b.WriteString("{")
	for _, op := range v.arr {
		b.WriteString(" ")
		b.WriteString(op.String())
	}
	b.WriteString(" }")
	if len(v.arr) == 0 {
		return "{}"
	}
	return b.String()
}

// FirstLen returns how many ops the first top-level element of an
// array interior spans. A leading OP_ARR_BEGIN extends to its matching
// OP_ARR_END; any other op is an element on its own.
func FirstLen(ops []opcodes.Op) (int, error) {
	if len(ops) == 0 {
		return 0, nil
	}
	if ops[0].Code != opcodes.OP_ARR_BEGIN {
		return 1, nil
	}
	depth := 1
	for i := 1; i < len(ops); i++ {
		switch ops[i].Code {
		case opcodes.OP_ARR_BEGIN:
			depth++
		case opcodes.OP_ARR_END:
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
	}
	return 0, ErrArrEndMismatch
}

// ElemCount counts the top-level elements of an array interior; each
// nested array counts as one element.
func ElemCount(ops []opcodes.Op) (int, error) {
	count := 0
	for i := 0; i < len(ops); {
		n, err := FirstLen(ops[i:])
		if err != nil {
			return 0, err
		}
		if n == 0 {
			break
		}
		count++
		i += n
	}
	return count, nil
}
