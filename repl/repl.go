// Package repl implements the interactive shell: each submission is
// compiled together with the definitions collected so far, linked and
// run on a fresh machine, and the resulting value stack is echoed.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/h6-lang/h6/bytecode"
	"github.com/h6-lang/h6/compiler"
	"github.com/h6-lang/h6/disasm"
	"github.com/h6-lang/h6/lexer"
	"github.com/h6-lang/h6/linker"
	"github.com/h6-lang/h6/parser"
	"github.com/h6-lang/h6/vm"
)

// Session holds the definitions accumulated across submissions.
type Session struct {
	defs   []parser.Expr
	scheme lexer.ColorScheme
	out    io.Writer
	in     io.Reader
}

// NewSession builds a session rendering with the given scheme.
func NewSession(scheme lexer.ColorScheme, in io.Reader, out io.Writer) *Session {
	return &Session{scheme: scheme, in: in, out: out}
}

// Eval compiles and runs one submission. Binding and extern
// expressions join the session context; everything else executes once.
// The returned strings render the machine's final value stack, bottom
// first.
func (s *Session) Eval(src string) ([]string, error) {
	toks, err := lexer.Lex(src)
	if err != nil {
		return nil, err
	}
	exprs, err := parser.Parse(toks)
	if err != nil {
		return nil, err
	}

	var newDefs []parser.Expr
	program := make([]parser.Expr, 0, len(s.defs)+len(exprs))
	program = append(program, s.defs...)
	for _, e := range exprs {
		if e.Binding != "" || e.DsoExtern {
			newDefs = append(newDefs, e)
			program = append(program, e)
		}
	}
	for _, e := range exprs {
		if e.Binding == "" && !e.DsoExtern {
			program = append(program, e)
		}
	}

	obj, err := compiler.Lower(program, false)
	if err != nil {
		return nil, err
	}
	if err := linker.SelfResolve(obj, linker.StrictTarget{}); err != nil {
		return nil, err
	}
	bc, err := bytecode.Parse(obj)
	if err != nil {
		return nil, err
	}
	rt, err := vm.New(bc)
	if err != nil {
		return nil, err
	}
	vm.RegisterStdIO(rt, s.in, s.out)
	if err := rt.Run(); err != nil {
		return nil, err
	}

	// only keep the definitions once the whole submission worked
	s.defs = append(s.defs, newDefs...)

	var rendered []string
	for _, v := range rt.Stack() {
		if n, err := v.AsNum(); err == nil {
			rendered = append(rendered, n.String())
			continue
		}
		arr, _ := v.AsArr()
		text, err := disasm.FormatOps(arr)
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, "{ "+text+"}")
	}
	return rendered, nil
}

// needsMoreInput reports whether the buffer has unclosed arrays,
// brackets or strings and the prompt should continue on the next line.
func needsMoreInput(src string) bool {
	curly, square := 0, 0
	inStr := false
	escaped := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if inStr {
			if c == '"' {
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case '{':
			curly++
		case '}':
			curly--
		case '[':
			square++
		case ']':
			square--
		}
	}
	return curly > 0 || square > 0 || inStr
}

// Run drives the interactive loop until EOF or an exit command.
func Run(scheme lexer.ColorScheme) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "h6> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".h6_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	errColor := color.New(color.FgRed)
	session := NewSession(scheme, os.Stdin, rl.Stdout())

	buffer := ""
	for {
		if buffer == "" {
			rl.SetPrompt("h6> ")
		} else {
			rl.SetPrompt("...> ")
		}
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			buffer = ""
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if buffer == "" {
			trimmed := strings.TrimSpace(line)
			if trimmed == "exit" || trimmed == "quit" {
				return nil
			}
			if trimmed == "" {
				continue
			}
		}

		buffer += line + "\n"
		if needsMoreInput(buffer) {
			continue
		}
		src := buffer
		buffer = ""

		stack, err := session.Eval(src)
		if err != nil {
			fmt.Fprintln(rl.Stdout(), errColor.Sprint(err))
			continue
		}
		if len(stack) > 0 {
			fmt.Fprintln(rl.Stdout(), session.scheme.Highlight(strings.Join(stack, " ")))
		}
	}
}
