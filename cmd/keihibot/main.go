// Package main is the entry point for the keihibot CLI.
package main

import (
	"os"

	"github.com/keihibot/keihibot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
