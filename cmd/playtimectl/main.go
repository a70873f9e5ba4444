package main

import (
	"os"

	"github.com/GerGh0stface/GhostyPlaytime/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
