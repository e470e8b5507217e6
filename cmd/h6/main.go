package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/h6-lang/h6/version"
)

func main() {
	app := &cli.Command{
		Name:  "h6",
		Usage: "Compiler, linker and stack machine for the H6 language",
		Commands: []*cli.Command{
			buildCommand,
			linkCommand,
			runCommand,
			disasmCommand,
			replCommand,
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "version",
				Local: true,
				Usage: "Show version",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("version") {
				fmt.Println(version.Version())
				return nil
			}
			return cli.ShowAppHelp(cmd)
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
