package main

import (
	"os"

	"github.com/Makepad-fr/focusflow/internal/cli"
)

func main() {
	// Flags and subcommands are parsed by the cli package.
	os.Exit(cli.Run(os.Args[1:]))
}
