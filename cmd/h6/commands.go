package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	pkgerrors "github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/h6-lang/h6/bytecode"
	"github.com/h6-lang/h6/compiler"
	"github.com/h6-lang/h6/disasm"
	"github.com/h6-lang/h6/lexer"
	"github.com/h6-lang/h6/linker"
	"github.com/h6-lang/h6/repl"
	"github.com/h6-lang/h6/vm"
)

// writeObject writes an image next to its final path and renames on
// success, so a failed build never leaves a truncated object behind.
func writeObject(path string, obj []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".h6-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(obj); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func targetFromFlags(cmd *cli.Command) linker.Target {
	allow := cmd.StringSlice("allow")
	if len(allow) == 0 {
		return linker.StrictTarget{}
	}
	return linker.NewAllowList(allow...)
}

var buildCommand = &cli.Command{
	Name:      "build",
	Usage:     "Compile a source file to an object",
	ArgsUsage: "<file.h6>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Object file to write",
		},
		&cli.BoolFlag{
			Name:  "pic",
			Usage: "Keep every reference unresolved for later linking",
		},
		&cli.StringSliceFlag{
			Name:  "allow",
			Usage: "Symbols that may stay undeclared",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		if cmd.Args().Len() != 1 {
			return fmt.Errorf("build needs exactly one source file")
		}
		srcPath := cmd.Args().First()
		src, err := os.ReadFile(srcPath)
		if err != nil {
			return err
		}
		obj, err := compiler.Compile(string(src), cmd.Bool("pic"))
		if err != nil {
			return err
		}
		if !cmd.Bool("pic") {
			if err := linker.SelfResolve(obj, targetFromFlags(cmd)); err != nil {
				return err
			}
		}

		out := cmd.String("output")
		if out == "" {
			out = strings.TrimSuffix(srcPath, ".h6") + ".h6b"
		}
		if err := writeObject(out, obj); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%s)\n", out, humanize.IBytes(uint64(len(obj))))
		return nil
	},
}

var linkCommand = &cli.Command{
	Name:      "link",
	Usage:     "Concatenate objects and resolve symbols",
	ArgsUsage: "<a.h6b> [b.h6b ...]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    "Object file to write",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:  "allow",
			Usage: "Symbols that may stay undeclared",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		inputs := cmd.Args().Slice()
		if len(inputs) == 0 {
			return fmt.Errorf("link needs at least one object")
		}

		out := cmd.String("output")
		tmp, err := os.CreateTemp(filepath.Dir(out), ".h6-*")
		if err != nil {
			return err
		}
		tmpName := tmp.Name()
		defer os.Remove(tmpName)

		first, err := os.ReadFile(inputs[0])
		if err != nil {
			tmp.Close()
			return err
		}
		if _, err := tmp.Write(first); err != nil {
			tmp.Close()
			return err
		}
		for _, path := range inputs[1:] {
			src, err := os.ReadFile(path)
			if err != nil {
				tmp.Close()
				return err
			}
			if err := linker.Concatenate(tmp, src); err != nil {
				tmp.Close()
				return pkgerrors.Wrapf(err, "linking %s", path)
			}
		}
		if err := tmp.Close(); err != nil {
			return err
		}

		merged, err := os.ReadFile(tmpName)
		if err != nil {
			return err
		}
		if err := linker.SelfResolve(merged, targetFromFlags(cmd)); err != nil {
			return err
		}
		if err := writeObject(out, merged); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%s)\n", out, humanize.IBytes(uint64(len(merged))))
		return nil
	},
}

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Execute an object, or compile and execute a source file",
	ArgsUsage: "<file.h6b|file.h6>",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "stack",
			Usage: "Print the final value stack",
		},
		&cli.StringSliceFlag{
			Name:  "allow",
			Usage: "Symbols that may stay undeclared",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		if cmd.Args().Len() != 1 {
			return fmt.Errorf("run needs exactly one file")
		}
		path := cmd.Args().First()
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var obj []byte
		if strings.HasSuffix(path, ".h6") {
			obj, err = compiler.Compile(string(raw), false)
			if err != nil {
				return err
			}
			if err := linker.SelfResolve(obj, targetFromFlags(cmd)); err != nil {
				return err
			}
		} else {
			obj = raw
		}

		bc, err := bytecode.Parse(obj)
		if err != nil {
			return err
		}
		rt, err := vm.New(bc)
		if err != nil {
			return err
		}
		vm.RegisterStdIO(rt, os.Stdin, os.Stdout)
		if err := rt.Run(); err != nil {
			return err
		}

		if cmd.Bool("stack") {
			for _, v := range rt.Stack() {
				fmt.Println(v)
			}
		}
		return nil
	},
}

var disasmCommand = &cli.Command{
	Name:      "disasm",
	Usage:     "Disassemble an object file",
	ArgsUsage: "<file.h6b>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "color",
			Value: "auto",
			Usage: "Colorize output: auto, always or never",
		},
		&cli.StringFlag{
			Name:  "scheme",
			Usage: "Color scheme YAML file",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		if cmd.Args().Len() != 1 {
			return fmt.Errorf("disasm needs exactly one object file")
		}
		raw, err := os.ReadFile(cmd.Args().First())
		if err != nil {
			return err
		}
		bc, err := bytecode.Parse(raw)
		if err != nil {
			return err
		}
		text, err := disasm.New(bc).Dump()
		if err != nil {
			return err
		}

		switch cmd.String("color") {
		case "always":
			color.NoColor = false
		case "never":
			color.NoColor = true
		}
		if cmd.String("color") == "never" {
			fmt.Print(text)
			return nil
		}
		scheme, err := loadScheme(cmd)
		if err != nil {
			return err
		}
		fmt.Print(scheme.Highlight(text))
		return nil
	},
}

var replCommand = &cli.Command{
	Name:  "repl",
	Usage: "Interactive shell",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "scheme",
			Usage: "Color scheme YAML file",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		scheme, err := loadScheme(cmd)
		if err != nil {
			return err
		}
		return repl.Run(scheme)
	},
}

func loadScheme(cmd *cli.Command) (lexer.ColorScheme, error) {
	if path := cmd.String("scheme"); path != "" {
		scheme, err := lexer.LoadColorScheme(path)
		if err != nil {
			return scheme, pkgerrors.Wrapf(err, "loading color scheme %s", path)
		}
		return scheme, nil
	}
	return lexer.DefaultColorScheme(), nil
}
