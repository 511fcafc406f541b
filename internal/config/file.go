package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/tcpscan/internal/model"
)

// File is the on-disk scan profile loaded with --config.
//
// Every field is optional. Values use the same syntax as the corresponding
// command-line flag and are validated by the same parsers.
type File struct {
	// Address is the target IP literal (same as -i).
	Address string `json:"address,omitempty" yaml:"address,omitempty"`

	// Threads is the worker count (same as -t). A pointer distinguishes
	// an explicit 0, which is invalid, from an absent value.
	Threads *int `json:"threads,omitempty" yaml:"threads,omitempty"`

	// Ports is the "start-end" range (same as -p).
	Ports string `json:"ports,omitempty" yaml:"ports,omitempty"`

	// Timeout is a Go duration string such as "500ms" (same as --timeout).
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Container names a Docker container whose address is scanned
	// (same as --container).
	Container string `json:"container,omitempty" yaml:"container,omitempty"`
}

// Load reads a scan profile. The format is chosen by extension:
// .yaml/.yml via yaml.v3, .json/.jsonc via encoding/json after stripping
// JSONC comments and trailing commas.
//
// Returns a CLIError with ExitConfigNotFound if the file does not exist.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitConfigNotFound,
				fmt.Sprintf("config file not found: %s", path),
				err,
			)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse config file at %s: %w", path, err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &f); err != nil {
			return nil, fmt.Errorf("failed to parse config file at %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q (valid: .yaml, .yml, .json, .jsonc)", ext)
	}

	return &f, nil
}

// Apply copies every value present in f onto cfg after validating it.
// cfg is left untouched if any value is invalid.
func (f *File) Apply(cfg *model.ScanConfig) error {
	next := *cfg

	if f.Address != "" {
		addr, err := ParseAddress(f.Address)
		if err != nil {
			return fmt.Errorf("config file: %w", err)
		}
		next.Address = addr
	}

	if f.Threads != nil {
		if *f.Threads < 1 || *f.Threads > model.MaxPort {
			return fmt.Errorf("config file: thread count %d out of range (1-%d)", *f.Threads, model.MaxPort)
		}
		next.Threads = *f.Threads
	}

	if f.Ports != "" {
		start, end, err := ParsePortRange(f.Ports)
		if err != nil {
			return fmt.Errorf("config file: %w", err)
		}
		next.StartPort, next.EndPort = start, end
	}

	if f.Timeout != "" {
		d, err := ParseTimeout(f.Timeout)
		if err != nil {
			return fmt.Errorf("config file: %w", err)
		}
		next.Timeout = d
	}

	if f.Address != "" && f.Container != "" {
		return fmt.Errorf("config file: address and container are mutually exclusive")
	}

	*cfg = next
	return nil
}

// ParseTimeout parses a non-negative Go duration. "0" disables the
// explicit connect timeout.
func ParseTimeout(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout %s must not be negative", d)
	}
	return d, nil
}
