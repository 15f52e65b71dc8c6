package main

import (
	"os"

	"github.com/cortexbuild/cortex/cmd/cortex/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
