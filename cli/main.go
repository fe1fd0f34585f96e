package main

import (
	"os"

	"github.com/JoaoG250/micro-do/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
