package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shinji-kodama/tcpscan/internal/model"
)

// newTestCommand creates a root command whose output is captured.
func newTestCommand(t *testing.T) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	t.Cleanup(func() {
		jsonOutput = false
		verbose = false
		logger = zap.NewNop()
	})
	return cmd, &stdout, &stderr
}

// startListener opens a loopback listener that accepts and drops
// connections, and returns its port.
func startListener(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "failed to start test listener")
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	port := listener.Addr().(*net.TCPAddr).Port
	if port+1 > model.MaxPort {
		t.Skipf("listener port %d is outside the scannable range", port)
	}
	return port
}

// requireCLIError asserts err is a CLIError with the given code.
func requireCLIError(t *testing.T, err error, code model.ExitCode) *model.CLIError {
	t.Helper()
	require.Error(t, err)
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr), "expected CLIError, got %T: %v", err, err)
	assert.Equal(t, code, cliErr.Code, "unexpected exit code for %v", err)
	return cliErr
}

func portRange(start, end int) string {
	return fmt.Sprintf("%d-%d", start, end)
}

// TestRun_TextReport scans a real listener and checks the exact output:
// one progress marker, a newline, then the report line.
func TestRun_TextReport(t *testing.T) {
	port := startListener(t)
	cmd, stdout, stderr := newTestCommand(t)

	err := Run(cmd, []string{"-i", "127.0.0.1", "-t", "1", "-p", portRange(port, port+1), "--timeout", "2s"})
	require.NoError(t, err)

	assert.Equal(t, ".\n"+strconv.Itoa(port)+" is open!\n", stdout.String())
	assert.Empty(t, stderr.String())
}

// TestRun_EmptyRange verifies start == end prints only the newline.
func TestRun_EmptyRange(t *testing.T) {
	cmd, stdout, _ := newTestCommand(t)

	err := Run(cmd, []string{"-p", "80-80"})
	require.NoError(t, err)

	assert.Equal(t, "\n", stdout.String())
}

// TestRun_JSONReport verifies stdout holds only the JSON document and the
// progress markers move to stderr.
func TestRun_JSONReport(t *testing.T) {
	port := startListener(t)
	cmd, stdout, stderr := newTestCommand(t)

	err := Run(cmd, []string{"-i", "127.0.0.1", "-t", "3", "-p", portRange(port, port+1), "--timeout", "2s", "--json"})
	require.NoError(t, err)

	var got reportJSON
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, "127.0.0.1", got.Address)
	assert.Equal(t, 3, got.Threads)
	assert.Equal(t, port, got.StartPort)
	assert.Equal(t, port+1, got.EndPort)
	assert.Equal(t, []int{port}, got.OpenPorts)

	assert.Equal(t, ".\n", stderr.String())
}

// TestRun_InvalidArguments verifies configuration errors stop the run
// before scanning, with a non-zero exit code.
func TestRun_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"inverted range", []string{"-p", "100-50"}},
		{"zero threads", []string{"-t", "0"}},
		{"too many threads", []string{"-t", "65356"}},
		{"bad address", []string{"-i", "not-an-ip"}},
		{"end past max port", []string{"-p", "1-65400"}},
		{"malformed range", []string{"-p", "80"}},
		{"unknown flag", []string{"-x"}},
		{"positional argument", []string{"foo"}},
		{"help not isolated", []string{"-h", "-t", "4"}},
		{"long help not isolated", []string{"-t", "4", "-help"}},
		{"too many arguments", []string{"-i", "::1", "-t", "4", "-p", "1-9", "-p"}},
		{"ip and container", []string{"-i", "::1", "--container", "web"}},
		{"bad timeout", []string{"-p", "1-2", "--timeout", "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, stdout, _ := newTestCommand(t)

			err := Run(cmd, tt.args)
			cliErr := requireCLIError(t, err, model.ExitInvalidArgs)
			assert.False(t, cliErr.Silent)
			assert.Empty(t, stdout.String(), "no scan output expected")
		})
	}
}

// TestRun_RawArgErrorsAsJSON verifies errors raised before flag parsing
// still follow --json.
func TestRun_RawArgErrorsAsJSON(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		message string
	}{
		{"help not isolated", []string{"--json", "-h", "-t", "4"}, "use -h or -help as an isolated argument"},
		{"too many arguments", []string{"--json", "-i", "::1", "-t", "4", "-p", "1-9", "-x"}, "too many arguments"},
		{"json with value", []string{"-h", "-t", "4", "--json=true"}, "use -h or -help as an isolated argument"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, stdout, stderr := newTestCommand(t)

			err := Run(cmd, tt.args)
			requireCLIError(t, err, model.ExitInvalidArgs)
			assert.Equal(t, model.ExitInvalidArgs, reportError(stderr, err))
			assert.Empty(t, stdout.String())

			var got map[string]map[string]string
			require.NoError(t, json.Unmarshal(stderr.Bytes(), &got), "stderr must be JSON: %q", stderr.String())
			assert.Equal(t, "invalid arguments", got["error"]["message"])
			assert.Equal(t, tt.message, got["error"]["detail"])
		})
	}
}

func TestJSONRequested(t *testing.T) {
	tests := []struct {
		args     []string
		expected bool
	}{
		{[]string{"--json"}, true},
		{[]string{"-t", "4", "--json=true"}, true},
		{[]string{"--json=1"}, true},
		{[]string{"--json=false"}, false},
		{[]string{"--json=maybe"}, false},
		{[]string{"-i", "::1"}, false},
		{nil, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.args), func(t *testing.T) {
			assert.Equal(t, tt.expected, jsonRequested(tt.args))
		})
	}
}

// TestReportError verifies exit codes and that silent errors print nothing.
func TestReportError(t *testing.T) {
	var buf bytes.Buffer

	code := reportError(&buf, &model.CLIError{Code: model.ExitHelp, Message: "help requested", Silent: true})
	assert.Equal(t, model.ExitHelp, code)
	assert.Empty(t, buf.String())

	code = reportError(&buf, model.NewCLIError(model.ExitDockerError, "docker unavailable"))
	assert.Equal(t, model.ExitDockerError, code)
	assert.Equal(t, "Error: docker unavailable\n", buf.String())

	buf.Reset()
	code = reportError(&buf, errors.New("boom"))
	assert.Equal(t, model.ExitGeneralError, code)
	assert.Equal(t, "Error: boom\n", buf.String())
}

// TestRun_Help verifies -h/-help print usage and exit non-zero silently.
func TestRun_Help(t *testing.T) {
	for _, token := range []string{"-h", "-help", "--help"} {
		t.Run(token, func(t *testing.T) {
			cmd, stdout, _ := newTestCommand(t)

			err := Run(cmd, []string{token})
			cliErr := requireCLIError(t, err, model.ExitHelp)
			assert.True(t, cliErr.Silent, "help must not print an error line")
			assert.NotEqual(t, model.ExitSuccess, cliErr.Code)
			assert.Contains(t, stdout.String(), "Usage:")
			assert.Contains(t, stdout.String(), "-p, --ports")
		})
	}
}

// TestRun_ConfigFile verifies file values are used and flags override them.
func TestRun_ConfigFile(t *testing.T) {
	port := startListener(t)
	path := filepath.Join(t.TempDir(), "scan.yaml")
	content := fmt.Sprintf("address: 127.0.0.1\nthreads: 1\nports: %s\ntimeout: 2s\n", portRange(port, port+1))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cmd, stdout, _ := newTestCommand(t)
	err := Run(cmd, []string{"--config", path, "-t", "4", "--json"})
	require.NoError(t, err)

	var got reportJSON
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, 4, got.Threads, "flag must override the file")
	assert.Equal(t, []int{port}, got.OpenPorts)
}

func TestRun_ConfigFileNotFound(t *testing.T) {
	cmd, _, _ := newTestCommand(t)

	err := Run(cmd, []string{"--config", filepath.Join(t.TempDir(), "nope.yaml")})
	requireCLIError(t, err, model.ExitConfigNotFound)
}

func TestRun_ConfigFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"ports": "9-1" /* inverted */}`), 0o644))

	cmd, _, _ := newTestCommand(t)
	err := Run(cmd, []string{"--config", path})
	requireCLIError(t, err, model.ExitInvalidArgs)
}

// TestRun_VerboseLogsArguments verifies --verbose logs the resolved
// configuration to stderr.
func TestRun_VerboseLogsArguments(t *testing.T) {
	cmd, _, stderr := newTestCommand(t)

	err := Run(cmd, []string{"-i", "::1", "-p", "80-80", "-v"})
	require.NoError(t, err)

	assert.Contains(t, stderr.String(), "Arguments: ::1 [80, 80) threads=10")
}

func TestPrintError(t *testing.T) {
	t.Cleanup(func() { jsonOutput = false })

	t.Run("text", func(t *testing.T) {
		jsonOutput = false
		var buf bytes.Buffer
		printError(&buf, "invalid arguments", errors.New("thread count 0 out of range (1-65355)"))
		assert.Equal(t, "Error: invalid arguments: thread count 0 out of range (1-65355)\n", buf.String())

		buf.Reset()
		printError(&buf, "too many arguments", nil)
		assert.Equal(t, "Error: too many arguments\n", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		jsonOutput = true
		var buf bytes.Buffer
		printError(&buf, "invalid arguments", errors.New("bad port"))

		var got map[string]map[string]string
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "invalid arguments", got["error"]["message"])
		assert.Equal(t, "bad port", got["error"]["detail"])
	})
}

func TestExtensionFlags(t *testing.T) {
	ext := extensionFlags(NewRootCommand())

	assert.Equal(t, false, ext["--json"])
	assert.Equal(t, false, ext["-v"])
	assert.Equal(t, true, ext["--config"])
	assert.Equal(t, true, ext["--container"])
	assert.Equal(t, true, ext["--timeout"])

	_, classic := ext["-i"]
	assert.False(t, classic, "-i is a classic flag")
	_, classic = ext["--ports"]
	assert.False(t, classic, "--ports is a classic flag")
}
