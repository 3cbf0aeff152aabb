// Package main is the entry point for the workshopctl CLI.
//
// workshopctl generates the per-node Talos machine configurations for a
// conference workshop cluster from a declarative cluster description,
// committed config patches and runtime-generated secret patches.
//
// Commands: generate, validate, version, completion.
//
// For detailed usage information, run:
//
//	workshopctl --help
package main

import (
	"fmt"
	"os"

	"github.com/nbhdai/workshopctl/cmd/workshopctl/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
