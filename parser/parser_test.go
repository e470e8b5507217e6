package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h6-lang/h6/lexer"
	"github.com/h6-lang/h6/opcodes"
)

func parseSrc(t *testing.T, src string) []Expr {
	t.Helper()
	toks, err := lexer.Lex(src)
	require.NoError(t, err)
	exprs, err := Parse(toks)
	require.NoError(t, err)
	return exprs
}

func push(i int32) opcodes.Op { return opcodes.Push(opcodes.NumFromInt(i)) }

func simple(c opcodes.Opcode) opcodes.Op { return opcodes.Simple(c) }

func TestParseOpsAndNumbers(t *testing.T) {
	exprs := parseSrc(t, "1 2 + .")
	require.Len(t, exprs, 4)
	assert.Equal(t, []opcodes.Op{push(1)}, exprs[0].Ops)
	assert.Equal(t, []opcodes.Op{push(2)}, exprs[1].Ops)
	assert.Equal(t, []opcodes.Op{simple(opcodes.OP_ADD)}, exprs[2].Ops)
	assert.Equal(t, []opcodes.Op{simple(opcodes.OP_DUP)}, exprs[3].Ops)
}

func TestParseCommaIsReach(t *testing.T) {
	exprs := parseSrc(t, ",")
	require.Len(t, exprs, 1)
	assert.Equal(t, []opcodes.Op{opcodes.Reach(1)}, exprs[0].Ops)
}

func TestParseBinding(t *testing.T) {
	exprs := parseSrc(t, "sq: { . * }")
	require.Len(t, exprs, 1)
	assert.Equal(t, "sq", exprs[0].Binding)
	assert.False(t, exprs[0].DsoExtern)
	assert.Equal(t, []opcodes.Op{
		simple(opcodes.OP_ARR_BEGIN),
		simple(opcodes.OP_DUP),
		simple(opcodes.OP_MUL),
		simple(opcodes.OP_ARR_END),
	}, exprs[0].Ops)
}

func TestParseBindingToNumber(t *testing.T) {
	exprs := parseSrc(t, "zero: 0")
	require.Len(t, exprs, 1)
	assert.Equal(t, "zero", exprs[0].Binding)
	assert.Equal(t, []opcodes.Op{push(0)}, exprs[0].Ops)
}

func TestParseExtern(t *testing.T) {
	exprs := parseSrc(t, "extern blit")
	require.Len(t, exprs, 1)
	assert.Equal(t, "blit", exprs[0].Binding)
	assert.True(t, exprs[0].DsoExtern)
	assert.Empty(t, exprs[0].Ops)
}

func TestParseIdentReference(t *testing.T) {
	exprs := parseSrc(t, "4 sq")
	require.Len(t, exprs, 2)
	assert.Equal(t, []opcodes.Op{opcodes.Frontend("sq")}, exprs[1].Ops)
}

func TestParseNestedArray(t *testing.T) {
	exprs := parseSrc(t, "{ 1 { 2 } }")
	require.Len(t, exprs, 1)
	assert.Equal(t, []opcodes.Op{
		simple(opcodes.OP_ARR_BEGIN),
		push(1),
		simple(opcodes.OP_ARR_BEGIN),
		push(2),
		simple(opcodes.OP_ARR_END),
		simple(opcodes.OP_ARR_END),
	}, exprs[0].Ops)
}

func TestParseMaterialize(t *testing.T) {
	exprs := parseSrc(t, "[!]")
	require.Len(t, exprs, 1)
	assert.Equal(t, []opcodes.Op{simple(opcodes.OP_MATERIALIZE)}, exprs[0].Ops)

	toks, err := lexer.Lex("[ 1 ]")
	require.NoError(t, err)
	_, err = Parse(toks)
	assert.Error(t, err)
}

func TestParseSystem(t *testing.T) {
	exprs := parseSrc(t, "system 3")
	require.Len(t, exprs, 1)
	assert.Equal(t, []opcodes.Op{opcodes.System(3)}, exprs[0].Ops)

	toks, err := lexer.Lex("system x")
	require.NoError(t, err)
	_, err = Parse(toks)
	assert.Error(t, err)
}

func TestParseString(t *testing.T) {
	exprs := parseSrc(t, `"hi"`)
	require.Len(t, exprs, 1)
	assert.Equal(t, []opcodes.Op{
		simple(opcodes.OP_ARR_BEGIN),
		push(int32('h')),
		push(int32('i')),
		simple(opcodes.OP_ARR_END),
	}, exprs[0].Ops)
}

func TestParseChar(t *testing.T) {
	exprs := parseSrc(t, "'A")
	require.Len(t, exprs, 1)
	assert.Equal(t, []opcodes.Op{push(int32('A'))}, exprs[0].Ops)
}

func TestParsePlanet(t *testing.T) {
	// &v-v copies slot 2, then slot 1 (pushed one deeper by the first
	// copy)
	exprs := parseSrc(t, "&v-v")
	require.Len(t, exprs, 1)
	assert.Equal(t, []opcodes.Op{opcodes.Reach(2), opcodes.Reach(1)}, exprs[0].Ops)

	exprs = parseSrc(t, "&v")
	assert.Equal(t, []opcodes.Op{opcodes.Reach(0)}, exprs[0].Ops)
}

func TestParseCommentsSkipped(t *testing.T) {
	exprs := parseSrc(t, "# header\n1 # trailing\n2")
	require.Len(t, exprs, 2)
}

func TestParseUnclosedArray(t *testing.T) {
	toks, err := lexer.Lex("{ 1")
	require.NoError(t, err)
	_, err = Parse(toks)
	require.Error(t, err)
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}
