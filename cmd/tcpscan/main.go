// Package main is the entry point for the tcpscan CLI.
//
// All functionality lives in internal/cli; this file only injects the
// build-time version information and runs the root command.
//
// Build-time variables (version, commit, date) are injected via ldflags.
// During development, they default to "dev", "none", and "unknown".
package main

import (
	"github.com/shinji-kodama/tcpscan/internal/cli"
)

// version, commit, and date are set at build time via ldflags. They are
// shown by the --version flag.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
