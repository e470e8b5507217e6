// Package compiler lowers parsed expressions into the binary object
// format. It only lays out data; symbol resolution across objects is
// the linker's job.
package compiler

import (
	"github.com/h6-lang/h6/bytecode"
	"github.com/h6-lang/h6/lexer"
	"github.com/h6-lang/h6/opcodes"
	"github.com/h6-lang/h6/parser"
)

// Lower writes expressions into a fresh object image.
//
// References to bindings that are already defined lower to Const
// directly; everything else (forward references, externals) writes the
// symbol name into the data table and lowers to Unresolved for the
// linker. With pic set, every reference stays Unresolved so the object
// can be concatenated behind arbitrary code.
func Lower(exprs []parser.Expr, pic bool) ([]byte, error) {
	w := bytecode.NewWriter()

	// name -> data-table offset of the binding's body, updated as
	// bindings appear so later references pick up redefinitions
	defined := make(map[string]uint32)
	bound := make(map[string]int) // name -> globals record index
	var globals []bytecode.NamedGlobal

	resolve := func(sym string) opcodes.Op {
		if !pic {
			if off, ok := defined[sym]; ok {
				return opcodes.Const(off)
			}
		}
		return opcodes.Unresolved(w.AddString(sym))
	}

	for _, e := range exprs {
		if e.DsoExtern {
			w.DeclareDso(e.Binding)
			continue
		}

		ops := make([]opcodes.Op, len(e.Ops))
		for i, op := range e.Ops {
			if op.Code == opcodes.OP_FRONTEND {
				ops[i] = resolve(op.Sym)
			} else {
				ops[i] = op
			}
		}

		if e.Binding == "" {
			w.AppendMain(ops...)
			continue
		}

		off := w.AddConst(ops)
		defined[e.Binding] = off
		if i, ok := bound[e.Binding]; ok {
			// redefinition keeps a single globals record, pointing at
			// the newest body
			globals[i].ConstID = off
		} else {
			bound[e.Binding] = len(globals)
			globals = append(globals, bytecode.NamedGlobal{Name: e.Binding, ConstID: off})
		}
	}

	for _, g := range globals {
		w.BindGlobal(g.Name, g.ConstID)
	}
	return w.Finish(), nil
}

// Compile runs the full front-end: scan, parse, lower.
func Compile(src string, pic bool) ([]byte, error) {
	toks, err := lexer.Lex(src)
	if err != nil {
		return nil, err
	}
	exprs, err := parser.Parse(toks)
	if err != nil {
		return nil, err
	}
	return Lower(exprs, pic)
}
