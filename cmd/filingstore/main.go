package main

import (
	"os"

	"github.com/fino-data/filingstore/internal/cli/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
