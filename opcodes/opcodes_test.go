package opcodes

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpRoundTrip(t *testing.T) {
	ops := []Op{
		Unresolved(12),
		Const(0x01020304),
		Push(NumFromInt(-7)),
		Push(NumFromFloat(2.5)),
		Reach(3),
		System(9),
		DsoConst(1),
		Jump(500),
		Simple(OP_ADD),
		Simple(OP_SUB),
		Simple(OP_MUL),
		Simple(OP_DIV),
		Simple(OP_MOD),
		Simple(OP_FRACT),
		Simple(OP_DUP),
		Simple(OP_SWAP),
		Simple(OP_POP),
		Simple(OP_EXEC),
		Simple(OP_SELECT),
		Simple(OP_LT),
		Simple(OP_GT),
		Simple(OP_EQ),
		Simple(OP_NOT),
		Simple(OP_ROL),
		Simple(OP_ROR),
		Simple(OP_ARR_BEGIN),
		Simple(OP_ARR_END),
		Simple(OP_ARR_CAT),
		Simple(OP_ARR_FIRST),
		Simple(OP_ARR_LEN),
		Simple(OP_ARR_SKIP1),
		Simple(OP_PACK),
		Simple(OP_TYPEID),
		Simple(OP_OPS_OF),
		Simple(OP_CONST_AT),
		Simple(OP_MATERIALIZE),
	}

	for _, op := range ops {
		enc := op.Append(nil)
		require.Equal(t, op.EncodedLen(), len(enc), "encoded length of %s", op)

		hadParam, dec, err := ReadOne(enc)
		require.NoError(t, err, "decoding %s", op)
		assert.Equal(t, op.Code.HasParam(), hadParam)
		assert.Equal(t, op, dec)
	}
}

func TestReadOneErrors(t *testing.T) {
	_, _, err := ReadOne(nil)
	assert.ErrorIs(t, err, ErrNotEnoughBytes)

	// parameterized op with a truncated param
	_, _, err = ReadOne([]byte{byte(OP_PUSH), 1, 2})
	assert.ErrorIs(t, err, ErrNotEnoughBytes)

	_, _, err = ReadOne([]byte{200})
	assert.ErrorIs(t, err, ErrUnknownOpcode)
	var unknown *UnknownOpcodeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, byte(200), unknown.Tag)
}

func TestOpsIter(t *testing.T) {
	var buf []byte
	buf = Push(NumFromInt(1)).Append(buf)
	buf = Simple(OP_ADD).Append(buf)
	buf = Const(7).Append(buf)
	buf = Simple(OP_TERMINATE).Append(buf)
	// trailing garbage after the terminator must never be read
	buf = append(buf, 0xee, 0xee)

	it := NewOpsIter(100, buf)

	pos, op, ok := it.Next()
	require.True(t, ok)
	assert.Equal(t, 100, pos)
	assert.Equal(t, Push(NumFromInt(1)), op)

	pos, op, ok = it.Next()
	require.True(t, ok)
	assert.Equal(t, 105, pos)
	assert.Equal(t, Simple(OP_ADD), op)

	pos, op, ok = it.Next()
	require.True(t, ok)
	assert.Equal(t, 106, pos)
	assert.Equal(t, Const(7), op)

	_, _, ok = it.Next()
	assert.False(t, ok)
	assert.NoError(t, it.Err())

	// polling after the end stays empty
	_, _, ok = it.Next()
	assert.False(t, ok)
}

func TestOpsIterError(t *testing.T) {
	buf := Push(NumFromInt(1)).Append(nil)
	buf = append(buf, 250) // unknown tag

	it := NewOpsIter(0, buf)
	_, _, ok := it.Next()
	require.True(t, ok)

	_, _, ok = it.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, it.Err(), ErrUnknownOpcode)

	// still empty afterwards
	_, _, ok = it.Next()
	assert.False(t, ok)
}

func TestShift(t *testing.T) {
	assert.Equal(t, Const(30), Const(10).Shift(20))
	assert.Equal(t, Jump(25), Jump(5).Shift(20))
	assert.Equal(t, Unresolved(21), Unresolved(1).Shift(20))

	// non-reference params stay put
	assert.Equal(t, Push(NumFromInt(1)), Push(NumFromInt(1)).Shift(20))
	assert.Equal(t, System(3), System(3).Shift(20))
	assert.Equal(t, Reach(2), Reach(2).Shift(20))
	assert.Equal(t, Simple(OP_ADD), Simple(OP_ADD).Shift(20))
}

func TestWriteTo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Push(NumFromInt(3)).WriteTo(&buf))
	assert.Equal(t, []byte{byte(OP_PUSH), 0, 3, 0, 0}, buf.Bytes())
}

func TestEncodeFrontendPanics(t *testing.T) {
	assert.Panics(t, func() {
		Frontend("x").Append(nil)
	})
}
