package parser

import (
	"fmt"

	"github.com/h6-lang/h6/lexer"
	"github.com/h6-lang/h6/opcodes"
)

// Expr is one parsed surface expression, already lowered to the op
// sequence it contributes. Identifier references stay as frontend
// placeholders until the compiler lays out the data table.
type Expr struct {
	Span lexer.Position

	// Binding names the global this expression defines, "" for plain
	// main-code expressions.
	Binding string

	// DsoExtern marks an `extern name` declaration; Ops is empty.
	DsoExtern bool

	Ops []opcodes.Op
}

// ParseError reports a syntax error with its source byte range.
type ParseError struct {
	Position lexer.Position
	Msg      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d: %s", e.Position.Start, e.Msg)
}

// opTokens maps single-token operators to their instruction.
var opTokens = map[lexer.TokenType]opcodes.Op{
	lexer.T_DOT:         opcodes.Simple(opcodes.OP_DUP),
	lexer.T_COMMA:       opcodes.Reach(1),
	lexer.T_SEMICOLON:   opcodes.Simple(opcodes.OP_POP),
	lexer.T_EXCLAMATION: opcodes.Simple(opcodes.OP_EXEC),
	lexer.T_QUESTION:    opcodes.Simple(opcodes.OP_SELECT),
	lexer.T_ANGLE_OPEN:  opcodes.Simple(opcodes.OP_LT),
	lexer.T_ANGLE_CLOSE: opcodes.Simple(opcodes.OP_GT),
	lexer.T_EQUAL:       opcodes.Simple(opcodes.OP_EQ),
	lexer.T_TILDE:       opcodes.Simple(opcodes.OP_NOT),
	lexer.T_PLUS:        opcodes.Simple(opcodes.OP_ADD),
	lexer.T_MINUS:       opcodes.Simple(opcodes.OP_SUB),
	lexer.T_MUL:         opcodes.Simple(opcodes.OP_MUL),
	lexer.T_MOD:         opcodes.Simple(opcodes.OP_MOD),
	lexer.T_DIV:         opcodes.Simple(opcodes.OP_DIV),
	lexer.T_L:           opcodes.Simple(opcodes.OP_ROL),
	lexer.T_R:           opcodes.Simple(opcodes.OP_ROR),
	lexer.T_DOLLAR:      opcodes.Simple(opcodes.OP_SWAP),
	lexer.T_AT0:         opcodes.Simple(opcodes.OP_ARR_FIRST),
	lexer.T_AT_PLUS:     opcodes.Simple(opcodes.OP_ARR_CAT),
	lexer.T_AT_STAR:     opcodes.Simple(opcodes.OP_ARR_LEN),
	lexer.T_AT_LEFT:     opcodes.Simple(opcodes.OP_ARR_SKIP1),
	lexer.T_PACK:        opcodes.Simple(opcodes.OP_PACK),
	lexer.T_TYPEID:      opcodes.Simple(opcodes.OP_TYPEID),
	lexer.T_FRACT:       opcodes.Simple(opcodes.OP_FRACT),
	lexer.T_OPS_OF:      opcodes.Simple(opcodes.OP_OPS_OF),
	lexer.T_CONST_AT:    opcodes.Simple(opcodes.OP_CONST_AT),
}

type parser struct {
	toks []lexer.Token
	pos  int
}

// Parse turns a token stream into expressions. Comment tokens are
// skipped.
func Parse(toks []lexer.Token) ([]Expr, error) {
	p := &parser{toks: toks}
	var exprs []Expr
	for !p.atEnd() {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	return exprs, nil
}

func (p *parser) skipComments() {
	for p.pos < len(p.toks) && p.toks[p.pos].Type == lexer.T_COMMENT {
		p.pos++
	}
}

func (p *parser) atEnd() bool {
	p.skipComments()
	return p.pos >= len(p.toks)
}

func (p *parser) peek() lexer.Token {
	p.skipComments()
	if p.pos >= len(p.toks) {
		return lexer.Token{Type: lexer.T_EOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peekAt(off int) lexer.Token {
	// comments between the lookahead tokens do not matter for the
	// binding check
	seen := 0
	for i := p.pos; i < len(p.toks); i++ {
		if p.toks[i].Type == lexer.T_COMMENT {
			continue
		}
		if seen == off {
			return p.toks[i]
		}
		seen++
	}
	return lexer.Token{Type: lexer.T_EOF}
}

func (p *parser) next() lexer.Token {
	tok := p.peek()
	if tok.Type != lexer.T_EOF {
		p.pos++
	}
	return tok
}

func (p *parser) errf(tok lexer.Token, format string, args ...interface{}) error {
	return &ParseError{Position: tok.Position, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseExpr() (Expr, error) {
	tok := p.peek()

	switch tok.Type {
	case lexer.T_EXTERN:
		p.next()
		name := p.next()
		if name.Type != lexer.T_IDENT {
			return Expr{}, p.errf(name, "extern needs a symbol name")
		}
		return Expr{
			Span:      lexer.Position{Start: tok.Position.Start, End: name.Position.End},
			Binding:   name.Value,
			DsoExtern: true,
		}, nil

	case lexer.T_IDENT:
		if p.peekAt(1).Type == lexer.T_COLON {
			name := p.next()
			p.next() // colon
			body, err := p.parseExpr()
			if err != nil {
				return Expr{}, err
			}
			return Expr{
				Span:    lexer.Position{Start: name.Position.Start, End: body.Span.End},
				Binding: name.Value,
				Ops:     body.Ops,
			}, nil
		}
		p.next()
		return Expr{Span: tok.Position, Ops: []opcodes.Op{opcodes.Frontend(tok.Value)}}, nil

	case lexer.T_CURLY_OPEN:
		return p.parseArray()

	case lexer.T_SQUARE_OPEN:
		// the only bracket form is [!], materialize
		p.next()
		bang := p.next()
		closing := p.next()
		if bang.Type != lexer.T_EXCLAMATION || closing.Type != lexer.T_SQUARE_CLOSE {
			return Expr{}, p.errf(tok, "expected [!]")
		}
		return Expr{
			Span: lexer.Position{Start: tok.Position.Start, End: closing.Position.End},
			Ops:  []opcodes.Op{opcodes.Simple(opcodes.OP_MATERIALIZE)},
		}, nil

	case lexer.T_SYSTEM:
		p.next()
		id := p.next()
		if id.Type != lexer.T_NUM {
			return Expr{}, p.errf(id, "system needs a numeric id")
		}
		n, err := opcodes.ParseNum(id.Value)
		if err != nil {
			return Expr{}, p.errf(id, "bad system id %q", id.Value)
		}
		return Expr{
			Span: lexer.Position{Start: tok.Position.Start, End: id.Position.End},
			Ops:  []opcodes.Op{opcodes.System(uint32(n.Int()))},
		}, nil

	case lexer.T_NUM:
		p.next()
		n, err := opcodes.ParseNum(tok.Value)
		if err != nil {
			return Expr{}, p.errf(tok, "bad number %q", tok.Value)
		}
		return Expr{Span: tok.Position, Ops: []opcodes.Op{opcodes.Push(n)}}, nil

	case lexer.T_STR:
		p.next()
		ops := make([]opcodes.Op, 0, len(tok.Value)+2)
		ops = append(ops, opcodes.Simple(opcodes.OP_ARR_BEGIN))
		for i := 0; i < len(tok.Value); i++ {
			ops = append(ops, opcodes.Push(opcodes.NumFromInt(int32(tok.Value[i]))))
		}
		ops = append(ops, opcodes.Simple(opcodes.OP_ARR_END))
		return Expr{Span: tok.Position, Ops: ops}, nil

	case lexer.T_CHAR:
		p.next()
		r := []rune(tok.Value)[0]
		return Expr{Span: tok.Position, Ops: []opcodes.Op{opcodes.Push(opcodes.NumFromInt(int32(r)))}}, nil

	case lexer.T_REF_PLANET:
		p.next()
		return Expr{Span: tok.Position, Ops: lowerPlanet(tok.Value)}, nil
	}

	if op, ok := opTokens[tok.Type]; ok {
		p.next()
		return Expr{Span: tok.Position, Ops: []opcodes.Op{op}}, nil
	}
	return Expr{}, p.errf(tok, "unexpected %s", lexer.TokenNames[tok.Type])
}

func (p *parser) parseArray() (Expr, error) {
	open := p.next() // {
	ops := []opcodes.Op{opcodes.Simple(opcodes.OP_ARR_BEGIN)}
	for {
		tok := p.peek()
		if tok.Type == lexer.T_EOF {
			return Expr{}, p.errf(open, "unclosed array")
		}
		if tok.Type == lexer.T_CURLY_CLOSE {
			p.next()
			ops = append(ops, opcodes.Simple(opcodes.OP_ARR_END))
			return Expr{
				Span: lexer.Position{Start: open.Position.Start, End: tok.Position.End},
				Ops:  ops,
			}, nil
		}
		// nested bindings contribute their value ops only
		e, err := p.parseExpr()
		if err != nil {
			return Expr{}, err
		}
		ops = append(ops, e.Ops...)
	}
}

// lowerPlanet expands a `&v-v` stack reference into Reach ops. Each
// `v` picks the element at its depth; earlier picks push the later
// ones one slot deeper.
func lowerPlanet(flags string) []opcodes.Op {
	taken := 0
	var ops []opcodes.Op
	for i := len(flags) - 1; i >= 0; i-- {
		if flags[i] == 'v' {
			ops = append(ops, opcodes.Reach(uint32(taken+i)))
			taken++
		}
	}
	return ops
}
