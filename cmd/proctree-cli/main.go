package main

import (
	"fmt"
	"os"

	"github.com/vatlidak/proctree-go/internal/cli/command"
	"github.com/vatlidak/proctree-go/internal/cli/repl"
)

func main() {
	app := command.App()

	// Bare invocation drops into the interactive shell.
	if len(os.Args) == 1 {
		shell := repl.New(func(args []string) error {
			return command.App().Run(args)
		})
		if err := shell.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
