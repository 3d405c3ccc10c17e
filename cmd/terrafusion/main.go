package main

import (
	"os"

	"github.com/terrabuild/terrafusion/backend/cmd/terrafusion/commands"
)

// main is the entry point for the TerraFusion CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
