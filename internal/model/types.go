// Package model defines the domain types for the tcpscan CLI.
//
// All entities in this package are transient: a ScanConfig is built once per
// run by the configuration layer, shared read-only by every scan worker, and
// a Report is produced once at the end of the run. Nothing is persisted.
package model

import (
	"fmt"
	"net/netip"
	"time"
)

const (
	// MaxPort is the largest port number accepted for the end of a scan
	// range and the largest accepted worker count.
	MaxPort = 65355

	// DefaultThreads is the worker count used when -t is not given.
	DefaultThreads = 10

	// MaxArgs is the maximum number of classic (-i/-t/-p) command-line
	// tokens accepted in a single invocation.
	MaxArgs = 6

	// DefaultStartPort is the first port of the default scan range.
	DefaultStartPort = 1
)

// DefaultAddress is the loopback target used when no address is given.
var DefaultAddress = netip.MustParseAddr("127.0.0.1")

// ScanConfig is the validated Configuration for a single scan run.
//
// The port range is half-open: StartPort is scanned, EndPort is not.
// A ScanConfig must not be mutated once handed to the scanner, since every
// worker reads it concurrently without locking.
type ScanConfig struct {
	// Address is the IPv4 or IPv6 target.
	Address netip.Addr

	// Threads is the worker count, which is also the stride between the
	// ports a single worker scans.
	Threads int

	// StartPort is the inclusive lower bound of the scan range.
	StartPort int

	// EndPort is the exclusive upper bound of the scan range.
	EndPort int

	// Timeout bounds each connect attempt. Zero leaves the platform's
	// default connect timeout in effect.
	Timeout time.Duration
}

// DefaultScanConfig returns the configuration used when no arguments are
// given: loopback, DefaultThreads workers, ports [1, MaxPort).
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Address:   DefaultAddress,
		Threads:   DefaultThreads,
		StartPort: DefaultStartPort,
		EndPort:   MaxPort,
	}
}

// Validate checks the invariants the scanner relies on.
func (c *ScanConfig) Validate() error {
	if !c.Address.IsValid() {
		return fmt.Errorf("scan config: target address is not set")
	}
	if c.Threads < 1 || c.Threads > MaxPort {
		return fmt.Errorf("scan config: thread count %d out of range (1-%d)", c.Threads, MaxPort)
	}
	if c.StartPort < 0 || c.StartPort > c.EndPort {
		return fmt.Errorf("scan config: start port %d must be between 0 and end port %d", c.StartPort, c.EndPort)
	}
	if c.EndPort > MaxPort {
		return fmt.Errorf("scan config: end port %d exceeds %d", c.EndPort, MaxPort)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("scan config: timeout must not be negative")
	}
	return nil
}

// PortCount returns the number of ports in [StartPort, EndPort).
func (c *ScanConfig) PortCount() int {
	return c.EndPort - c.StartPort
}

// String returns a one-line description suitable for logs.
// Format: "address [start, end) threads=N"
func (c ScanConfig) String() string {
	return fmt.Sprintf("%s [%d, %d) threads=%d", c.Address, c.StartPort, c.EndPort, c.Threads)
}

// Report is the ascending list of open ports found by a scan run.
type Report struct {
	// Config is the configuration the report was produced from.
	Config ScanConfig

	// OpenPorts is sorted ascending and contains no duplicates.
	OpenPorts []int
}

// Lines renders the report body, one "<port> is open!" line per open port.
func (r *Report) Lines() []string {
	lines := make([]string, 0, len(r.OpenPorts))
	for _, p := range r.OpenPorts {
		lines = append(lines, fmt.Sprintf("%d is open!", p))
	}
	return lines
}

// ExitCode defines the process exit codes of the CLI.
type ExitCode int

const (
	// ExitSuccess indicates the scan completed.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitHelp is returned after usage text was printed on request.
	// No scan is performed in that case.
	ExitHelp ExitCode = 1

	// ExitInvalidArgs indicates a configuration error detected before
	// any connection was attempted.
	ExitInvalidArgs ExitCode = 2

	// ExitDockerError indicates the Docker daemon could not be reached or
	// the requested container could not be resolved to an address.
	ExitDockerError ExitCode = 3

	// ExitConfigNotFound indicates the --config file does not exist.
	ExitConfigNotFound ExitCode = 4
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error

	// Silent suppresses the error line. Used after help output.
	Silent bool
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
