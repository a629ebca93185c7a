package main

import (
	"os"

	"github.com/smassist/backend/cmd/smassist/commands"
)

// main is the entry point for the smassist CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
