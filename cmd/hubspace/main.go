package main

import (
	"os"

	"hubspace/cmd/hubspace/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
