// Package config builds the validated scan configuration from command-line
// values and optional configuration files.
//
// Everything here runs before the first connection attempt. Any error is
// fatal to the run; the scanner itself only ever sees a valid
// model.ScanConfig.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/shinji-kodama/tcpscan/internal/model"
)

var (
	// ErrTooManyArgs is returned when more than model.MaxArgs classic
	// tokens are given.
	ErrTooManyArgs = errors.New("too many arguments")

	// ErrHelpNotIsolated is returned when -h/-help is combined with other
	// arguments.
	ErrHelpNotIsolated = errors.New("use -h or -help as an isolated argument")
)

// helpTokens are the spellings accepted for the help request.
var helpTokens = map[string]bool{
	"-h":     true,
	"-help":  true,
	"--help": true,
}

// ParseAddress parses an IPv4 or IPv6 literal. Host names are rejected.
func ParseAddress(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("invalid IP address %q", s)
	}
	if addr.Zone() != "" {
		return netip.Addr{}, fmt.Errorf("invalid IP address %q: zones are not supported", s)
	}
	return addr, nil
}

// ParseThreads parses a worker count in the range 1..model.MaxPort.
func ParseThreads(s string) (int, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid thread count %q", s)
	}
	if n == 0 || n > model.MaxPort {
		return 0, fmt.Errorf("thread count %d out of range (1-%d)", n, model.MaxPort)
	}
	return int(n), nil
}

// ParsePortRange parses "<start>-<end>" into a half-open range.
//
// Both bounds must be port-sized unsigned integers, start must not exceed
// end, and end must not exceed model.MaxPort. "80-80" is valid and denotes
// an empty range.
func ParsePortRange(s string) (start, end int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("ports should be in the form start-end, got %q", s)
	}

	first, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start port %q", parts[0])
	}
	second, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end port %q", parts[1])
	}

	if first > second {
		return 0, 0, fmt.Errorf("start port %d must not exceed end port %d", first, second)
	}
	if second > model.MaxPort {
		return 0, 0, fmt.Errorf("ports must be in range 0-%d", model.MaxPort)
	}
	return int(first), int(second), nil
}

// Extensions describes command-line options that are not part of the
// classic -i/-t/-p surface. The key is the literal token ("--json", "-v")
// and the value reports whether the option consumes the following token.
type Extensions map[string]bool

// CheckRawArgs validates the raw argument list before flag parsing.
//
// Classic tokens (everything not described by ext) are limited to
// model.MaxArgs. A help token must be the only argument; help reports
// whether it was. Extension options and their values are not counted, and
// "--name=value" forms are recognised by their name.
func CheckRawArgs(args []string, ext Extensions) (help bool, err error) {
	classic := 0
	for i := 0; i < len(args); i++ {
		name, _, hasValue := strings.Cut(args[i], "=")
		if takesValue, ok := ext[name]; ok {
			if takesValue && !hasValue {
				i++
			}
			continue
		}
		classic++
	}
	if classic > model.MaxArgs {
		return false, ErrTooManyArgs
	}

	for _, a := range args {
		if helpTokens[a] {
			if len(args) == 1 {
				return true, nil
			}
			return false, ErrHelpNotIsolated
		}
	}
	return false, nil
}
