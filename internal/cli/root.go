// Package cli implements the cobra-based command line of tcpscan.
//
// The root command is the scan itself; there are no subcommands. This file
// defines the command, its flags and the error/exit-code handling. The scan
// flow lives in scan.go and report formatting in output.go.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shinji-kodama/tcpscan/internal/config"
	"github.com/shinji-kodama/tcpscan/internal/model"
)

// Global flag variables. These are bound to cobra persistent flags on the
// root command and reset every time NewRootCommand is called.
var (
	// jsonOutput switches the report (and errors) to JSON.
	jsonOutput bool

	// verbose enables debug logging on stderr.
	verbose bool

	// logger is replaced by a development logger when --verbose is set.
	logger = zap.NewNop()
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// scanFlags holds the values of the scan flags. Numeric values are kept as
// strings so they go through the config parsers and their error messages.
type scanFlags struct {
	ip        string
	threads   string
	ports     string
	timeout   string
	container string
	config    string
}

// NewRootCommand creates the tcpscan command.
func NewRootCommand() *cobra.Command {
	flags := &scanFlags{}

	rootCmd := &cobra.Command{
		Use:   "tcpscan [-i address] [-t threads] [-p start-end]",
		Short: "Concurrent TCP connect port scanner",
		Long: fmt.Sprintf(`tcpscan attempts a TCP connection to every port in a range and lists
the ports that accepted one.

The range is split across a fixed number of workers by stride: worker i
scans start+i, start+i+threads, start+i+2*threads, ... so every port is
scanned exactly once. A "." is printed for each open port as it is found,
followed by the sorted list of open ports.

With no arguments, ports 1-%d on 127.0.0.1 are scanned with %d workers.
-h or -help must be given on its own.

Examples:
  tcpscan
  tcpscan -i 192.168.1.10 -t 100 -p 1-1024
  tcpscan -i ::1 -p 8000-8010
  tcpscan --container web -p 1-10000 --timeout 500ms
  tcpscan --config scan.yaml --json`, model.MaxPort, model.DefaultThreads),

		// Any positional argument is an invalid token.
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return model.NewCLIError(model.ExitInvalidArgs,
					fmt.Sprintf("invalid argument %q", args[0]))
			}
			return nil
		},

		// SilenceUsage prevents cobra from printing usage on every error.
		SilenceUsage: true,

		// SilenceErrors lets printError format errors (text or JSON).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger(verbose, cmd.ErrOrStderr())
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), cmd, flags)
		},
	}

	rootCmd.Flags().StringVarP(&flags.ip, "ip", "i", "",
		"Target IPv4 or IPv6 address (default 127.0.0.1)")
	rootCmd.Flags().StringVarP(&flags.threads, "threads", "t", "",
		fmt.Sprintf("Number of workers, 1-%d (default %d)", model.MaxPort, model.DefaultThreads))
	rootCmd.Flags().StringVarP(&flags.ports, "ports", "p", "",
		fmt.Sprintf("Port range start-end, end exclusive (default %d-%d)", model.DefaultStartPort, model.MaxPort))
	rootCmd.Flags().StringVar(&flags.timeout, "timeout", "",
		"Per-connection timeout, e.g. 500ms (default: platform connect timeout)")
	rootCmd.Flags().StringVar(&flags.container, "container", "",
		"Scan the IP address of this Docker container instead of -i")
	rootCmd.Flags().StringVar(&flags.config, "config", "",
		"Load scan settings from a .yaml or .jsonc file (flags take precedence)")

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return model.WrapCLIError(model.ExitInvalidArgs, "invalid argument", err)
	})

	return rootCmd
}

// extensionFlags lists the options outside the classic -i/-t/-p surface,
// in both spellings, for config.CheckRawArgs.
func extensionFlags(cmd *cobra.Command) config.Extensions {
	classic := map[string]bool{"ip": true, "threads": true, "ports": true, "help": true}
	ext := config.Extensions{"--version": false}

	add := func(f *pflag.Flag) {
		if classic[f.Name] {
			return
		}
		takesValue := f.NoOptDefVal == ""
		ext["--"+f.Name] = takesValue
		if f.Shorthand != "" {
			ext["-"+f.Shorthand] = takesValue
		}
	}
	cmd.Flags().VisitAll(add)
	cmd.PersistentFlags().VisitAll(add)
	return ext
}

// Run validates the raw arguments, then executes rootCmd with them.
//
// A lone help token prints the usage and returns a silent CLIError with
// ExitHelp, so the process still exits non-zero without scanning.
func Run(rootCmd *cobra.Command, args []string) error {
	// The raw check fails before cobra binds --json, so honour it here or
	// those errors would ignore the requested format.
	if jsonRequested(args) {
		jsonOutput = true
	}

	help, err := config.CheckRawArgs(args, extensionFlags(rootCmd))
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidArgs, "invalid arguments", err)
	}
	if help {
		if err := rootCmd.Help(); err != nil {
			return err
		}
		return &model.CLIError{Code: model.ExitHelp, Message: "help requested", Silent: true}
	}

	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// jsonRequested reports whether args contain --json in a form that enables
// it ("--json" or "--json=<true value>").
func jsonRequested(args []string) bool {
	for _, a := range args {
		if a == "--json" {
			return true
		}
		if value, ok := strings.CutPrefix(a, "--json="); ok {
			if enabled, err := strconv.ParseBool(value); err == nil && enabled {
				return true
			}
		}
	}
	return false
}

// Execute runs the root command with the process arguments and exits with
// the matching code on failure. This is the entry point called from main.go.
func Execute(rootCmd *cobra.Command) {
	err := Run(rootCmd, os.Args[1:])
	_ = logger.Sync()
	if err == nil {
		return
	}
	os.Exit(int(reportError(rootCmd.ErrOrStderr(), err)))
}

// reportError prints err (unless it is a silent CLIError) and returns the
// exit code for it.
func reportError(w io.Writer, err error) model.ExitCode {
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		if !cliErr.Silent {
			printError(w, cliErr.Message, cliErr.Err)
		}
		return cliErr.Code
	}

	printError(w, err.Error(), nil)
	return model.ExitGeneralError
}

// printError writes an error message in text or JSON form, depending on
// the --json flag. Errors always go to stderr; stdout is reserved for the
// report.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// newLogger returns a console logger on w at debug level when enabled,
// and a no-op logger otherwise.
func newLogger(enabled bool, w io.Writer) *zap.Logger {
	if !enabled {
		return zap.NewNop()
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
	return zap.New(core)
}

// VerboseLog prints a debug message when verbose mode is enabled.
func VerboseLog(format string, args ...interface{}) {
	logger.Sugar().Debugf(format, args...)
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}
