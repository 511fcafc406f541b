// Package cli: output.go formats the scan report.
//
// Text output ends the progress line with a newline and then lists one
// "<port> is open!" line per open port in ascending order. JSON output is
// a single document on stdout.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shinji-kodama/tcpscan/internal/model"
)

// reportJSON is the JSON output structure of a scan.
type reportJSON struct {
	Address   string `json:"address"`
	StartPort int    `json:"startPort"`
	EndPort   int    `json:"endPort"`
	Threads   int    `json:"threads"`
	OpenPorts []int  `json:"openPorts"`
}

// printReportText writes the newline that terminates the progress markers,
// then the sorted open ports. An empty report prints only the newline.
func printReportText(w io.Writer, report *model.Report) {
	fmt.Fprintln(w)
	for _, line := range report.Lines() {
		fmt.Fprintln(w, line)
	}
}

// printReportJSON writes the report as indented JSON.
func printReportJSON(w io.Writer, report *model.Report) error {
	result := reportJSON{
		Address:   report.Config.Address.String(),
		StartPort: report.Config.StartPort,
		EndPort:   report.Config.EndPort,
		Threads:   report.Config.Threads,
		// Use an empty slice instead of nil so the output shows [] rather
		// than null when nothing is open.
		OpenPorts: make([]int, 0, len(report.OpenPorts)),
	}
	result.OpenPorts = append(result.OpenPorts, report.OpenPorts...)

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// FormatPortsList joins already-sorted ports with commas.
// Returns "-" if there are none.
//
// Example:
//
//	[22, 80, 443] → "22,80,443"
//	[]            → "-"
func FormatPortsList(ports []int) string {
	if len(ports) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		parts = append(parts, strconv.Itoa(p))
	}
	return strings.Join(parts, ",")
}
