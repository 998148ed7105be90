package main

import (
	"os"

	"github.com/edusignal/kbingest/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
