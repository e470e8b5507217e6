package lexer

import "fmt"

// TokenType identifies a lexical token of the surface syntax.
type TokenType int

// Position is a byte range in the source text.
type Position struct {
	Start int
	End   int
}

// Token is one lexical unit. Value carries the decoded payload for
// numbers, strings, chars, identifiers, comments and planet refs.
type Token struct {
	Type     TokenType
	Value    string
	Position Position
}

func (t Token) String() string {
	return fmt.Sprintf("Token{%s %q %d..%d}", TokenNames[t.Type], t.Value, t.Position.Start, t.Position.End)
}

const (
	T_EOF TokenType = iota
	T_ERROR

	T_NUM
	T_STR
	T_CHAR
	T_IDENT
	T_COMMENT
	T_REF_PLANET

	// punctuation
	T_COLON
	T_CURLY_OPEN
	T_CURLY_CLOSE
	T_SQUARE_OPEN
	T_SQUARE_CLOSE
	T_DOT
	T_COMMA
	T_SEMICOLON
	T_EXCLAMATION
	T_QUESTION
	T_ANGLE_OPEN
	T_ANGLE_CLOSE
	T_EQUAL
	T_TILDE
	T_PLUS
	T_MINUS
	T_MUL
	T_MOD
	T_DIV
	T_DOLLAR
	T_AT0
	T_AT_PLUS
	T_AT_STAR
	T_AT_LEFT

	// keywords
	T_L
	T_R
	T_PACK
	T_FRACT
	T_SYSTEM
	T_TYPEID
	T_OPS_OF
	T_CONST_AT
	T_EXTERN
)

// TokenNames maps token types to display names for diagnostics.
var TokenNames = map[TokenType]string{
	T_EOF:          "EOF",
	T_ERROR:        "ERROR",
	T_NUM:          "NUM",
	T_STR:          "STR",
	T_CHAR:         "CHAR",
	T_IDENT:        "IDENT",
	T_COMMENT:      "COMMENT",
	T_REF_PLANET:   "REF_PLANET",
	T_COLON:        ":",
	T_CURLY_OPEN:   "{",
	T_CURLY_CLOSE:  "}",
	T_SQUARE_OPEN:  "[",
	T_SQUARE_CLOSE: "]",
	T_DOT:          ".",
	T_COMMA:        ",",
	T_SEMICOLON:    ";",
	T_EXCLAMATION:  "!",
	T_QUESTION:     "?",
	T_ANGLE_OPEN:   "<",
	T_ANGLE_CLOSE:  ">",
	T_EQUAL:        "=",
	T_TILDE:        "~",
	T_PLUS:         "+",
	T_MINUS:        "-",
	T_MUL:          "*",
	T_MOD:          "%",
	T_DIV:          "/",
	T_DOLLAR:       "$",
	T_AT0:          "@0",
	T_AT_PLUS:      "@+",
	T_AT_STAR:      "@*",
	T_AT_LEFT:      "@<",
	T_L:            "l",
	T_R:            "r",
	T_PACK:         "_",
	T_FRACT:        "fract",
	T_SYSTEM:       "system",
	T_TYPEID:       "typeid",
	T_OPS_OF:       "opsof",
	T_CONST_AT:     "constat",
	T_EXTERN:       "extern",
}

// Class buckets tokens for syntax highlighting.
type Class int

const (
	ClassNumber Class = iota
	ClassString
	ClassIdent
	ClassPoint
	ClassOp
	ClassComment
	ClassErr
)

// Class returns the highlight bucket of the token.
func (t Token) Class() Class {
	switch t.Type {
	case T_NUM:
		return ClassNumber
	case T_STR, T_CHAR:
		return ClassString
	case T_IDENT:
		return ClassIdent
	case T_CURLY_OPEN, T_CURLY_CLOSE, T_SQUARE_OPEN, T_SQUARE_CLOSE, T_COLON:
		return ClassPoint
	case T_COMMENT:
		return ClassComment
	case T_ERROR, T_EOF:
		return ClassErr
	}
	return ClassOp
}
