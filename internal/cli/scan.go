// Package cli: scan.go implements the scan flow of the root command.
//
// Configuration is resolved in layers: built-in defaults, then the
// --config file, then explicit flags. When a container is named, its
// address is looked up through Docker before the scan starts. Every
// configuration error is raised here, before any connection is attempted.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/tcpscan/internal/config"
	"github.com/shinji-kodama/tcpscan/internal/docker"
	"github.com/shinji-kodama/tcpscan/internal/model"
	"github.com/shinji-kodama/tcpscan/internal/port"
)

// runScan is the main logic function for the root command.
func runScan(ctx context.Context, cmd *cobra.Command, flags *scanFlags) error {
	// Step 1: Build the configuration from defaults, file and flags.
	cfg, container, err := resolveConfig(cmd, flags)
	if err != nil {
		return err
	}

	// Step 2: Resolve the container address through Docker, if requested.
	if container != "" {
		addr, err := lookupContainer(ctx, container)
		if err != nil {
			return err
		}
		VerboseLog("Container %q resolved to %s", container, addr)
		cfg.Address = addr
	}

	VerboseLog("Arguments: %s", cfg)

	// Step 3: Scan. In JSON mode the progress markers go to stderr so
	// stdout holds nothing but the JSON document.
	var progress io.Writer = cmd.OutOrStdout()
	if IsJSONOutput() {
		progress = cmd.ErrOrStderr()
	}
	scanner := port.NewScanner(
		port.WithProgress(progress),
		port.WithLogger(logger),
	)
	report, err := scanner.Run(ctx, cfg)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidArgs, "invalid scan configuration", err)
	}
	VerboseLog("Open ports: %s", FormatPortsList(report.OpenPorts))

	// Step 4: Print the sorted report.
	if IsJSONOutput() {
		// Terminate the progress line on stderr before the document.
		if len(report.OpenPorts) > 0 {
			fmt.Fprintln(progress)
		}
		return printReportJSON(cmd.OutOrStdout(), report)
	}
	printReportText(cmd.OutOrStdout(), report)
	return nil
}

// resolveConfig returns the validated configuration and the container to
// resolve, if any. Flags override file values; -i and --container are
// mutually exclusive on the command line.
func resolveConfig(cmd *cobra.Command, flags *scanFlags) (model.ScanConfig, string, error) {
	cfg := model.DefaultScanConfig()
	container := ""

	invalid := func(err error) (model.ScanConfig, string, error) {
		return model.ScanConfig{}, "", model.WrapCLIError(model.ExitInvalidArgs, "invalid arguments", err)
	}

	if flags.config != "" {
		file, err := config.Load(flags.config)
		if err != nil {
			var cliErr *model.CLIError
			if errors.As(err, &cliErr) {
				return model.ScanConfig{}, "", err
			}
			return invalid(err)
		}
		if err := file.Apply(&cfg); err != nil {
			return invalid(err)
		}
		container = file.Container
		VerboseLog("Loaded config file %s", flags.config)
	}

	changed := cmd.Flags().Changed

	if changed("ip") && changed("container") {
		return invalid(fmt.Errorf("-i and --container are mutually exclusive"))
	}

	if changed("ip") {
		addr, err := config.ParseAddress(flags.ip)
		if err != nil {
			return invalid(err)
		}
		cfg.Address = addr
		container = ""
	}

	if changed("container") {
		if flags.container == "" {
			return invalid(fmt.Errorf("--container requires a container name"))
		}
		container = flags.container
	}

	if changed("threads") {
		n, err := config.ParseThreads(flags.threads)
		if err != nil {
			return invalid(err)
		}
		cfg.Threads = n
	}

	if changed("ports") {
		start, end, err := config.ParsePortRange(flags.ports)
		if err != nil {
			return invalid(err)
		}
		cfg.StartPort, cfg.EndPort = start, end
	}

	if changed("timeout") {
		d, err := config.ParseTimeout(flags.timeout)
		if err != nil {
			return invalid(err)
		}
		cfg.Timeout = d
	}

	if err := cfg.Validate(); err != nil {
		return invalid(err)
	}
	return cfg, container, nil
}

// lookupContainer connects to Docker and returns the container's address.
func lookupContainer(ctx context.Context, name string) (netip.Addr, error) {
	cli, err := docker.NewClient()
	if err != nil {
		return netip.Addr{}, err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return netip.Addr{}, err
	}
	VerboseLog("Connected to Docker daemon")

	return cli.ContainerAddress(ctx, name)
}
