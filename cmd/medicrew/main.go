package main

import (
	"os"

	"github.com/medicrew/backend/cmd/medicrew/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
