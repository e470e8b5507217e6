package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h6-lang/h6/lexer"
)

func newTestSession() (*Session, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return NewSession(lexer.DefaultColorScheme(), strings.NewReader(""), out), out
}

func TestEvalExpression(t *testing.T) {
	s, _ := newTestSession()
	stack, err := s.Eval("2 3 +")
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, stack)
}

func TestEvalDefinitionPersists(t *testing.T) {
	s, _ := newTestSession()

	stack, err := s.Eval("sq: { . * }")
	require.NoError(t, err)
	assert.Empty(t, stack)

	stack, err = s.Eval("4 sq !")
	require.NoError(t, err)
	assert.Equal(t, []string{"16"}, stack)
}

func TestEvalArrayRendering(t *testing.T) {
	s, _ := newTestSession()
	stack, err := s.Eval("{ 1 2 }")
	require.NoError(t, err)
	assert.Equal(t, []string{"{ 1 2 }"}, stack)
}

func TestEvalUnknownSymbol(t *testing.T) {
	s, _ := newTestSession()
	_, err := s.Eval("nosuch")
	assert.Error(t, err)

	// a failed submission must not poison the session
	stack, err := s.Eval("1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, stack)
}

func TestEvalFailedDefinitionNotKept(t *testing.T) {
	s, _ := newTestSession()
	_, err := s.Eval("bad: { missing }\nbad !")
	require.Error(t, err)

	_, err = s.Eval("bad !")
	assert.Error(t, err)
}

func TestEvalSystemWritesOutput(t *testing.T) {
	s, out := newTestSession()
	_, err := s.Eval("65 system 0")
	require.NoError(t, err)
	assert.Equal(t, "A", out.String())
}

func TestNeedsMoreInput(t *testing.T) {
	assert.True(t, needsMoreInput("{ 1 2"))
	assert.True(t, needsMoreInput(`"open`))
	assert.True(t, needsMoreInput("[ !"))
	assert.False(t, needsMoreInput("{ 1 }"))
	assert.False(t, needsMoreInput("1 2 +"))
	assert.False(t, needsMoreInput("# { comment only\n1"))
}