// Package model defines the domain types and value objects for the
// tcpscan CLI.
//
// This package contains pure data structures with no external dependencies.
// ScanConfig is the read-only Configuration shared by all scan workers and
// Report is the sorted result of a run.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
