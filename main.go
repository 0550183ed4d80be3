package main

import (
	"os"

	"github.com/mcpbridge/mcpbridge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
