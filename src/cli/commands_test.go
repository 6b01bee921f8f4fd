package cli

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

// captureStderr runs fn with os.Stderr redirected to a pipe and returns
// everything written to it. CLILogger writes to stderr, not stdout.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()

	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stderr = w

	fn()

	if err := w.Close(); err != nil {
		t.Logf("cleanup error closing writer: %v", err)
	}
	os.Stderr = oldStderr

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("failed to read captured output: %v", err)
	}
	return buf.String()
}

func TestRootCommandMetadata(t *testing.T) {
	if rootCmd.Use != "codeintel" {
		t.Errorf("expected Use to be 'codeintel', got %q", rootCmd.Use)
	}
	if rootCmd.Short == "" {
		t.Error("expected a non-empty Short description")
	}
	if !rootCmd.SilenceUsage || !rootCmd.SilenceErrors {
		t.Error("expected SilenceUsage and SilenceErrors to both be true")
	}
}

func TestRootCommandHasExpectedSubcommands(t *testing.T) {
	expected := map[string]bool{CmdQuery: false, CmdCache: false, CmdVersion: false}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := expected[cmd.Name()]; ok {
			expected[cmd.Name()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("expected subcommand %q to be registered on rootCmd", name)
		}
	}
}

func TestVersionCommandExecution(t *testing.T) {
	verbose = false
	output := captureStderr(t, func() {
		if err := versionCmd.RunE(versionCmd, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if !strings.Contains(output, "codeintel") {
		t.Errorf("expected version output to mention codeintel, got: %s", output)
	}
}

func TestVersionCommandVerboseExecution(t *testing.T) {
	verbose = true
	defer func() { verbose = false }()

	output := captureStderr(t, func() {
		if err := versionCmd.RunE(versionCmd, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	if !strings.Contains(output, "go:") {
		t.Errorf("expected verbose version output to include build info, got: %s", output)
	}
}

func TestExecuteReturnsRootCommandErrors(t *testing.T) {
	rootCmd.SetArgs([]string{"nonexistent-command"})
	defer rootCmd.SetArgs(nil)

	if err := Execute(); err == nil {
		t.Error("expected an error for an unknown subcommand")
	}
}
