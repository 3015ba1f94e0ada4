package main

import (
	"os"

	"github.com/wonny/fxregime/cmd/fxregime/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
