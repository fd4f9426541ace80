// Package main is the entry point for the Warder CLI.
package main

import (
	"os"

	"github.com/Warder-Sonic/warder-wallet/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
