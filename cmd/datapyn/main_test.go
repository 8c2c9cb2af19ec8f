// Package main provides tests for the DataPyn CLI.
package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/datapyn/datapyn/internal/cli"
)

// chdirTemp keeps root command config discovery away from the repo's
// own files.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
	return dir
}

func execRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	chdirTemp(t)

	output, err := execRoot(t, "version")
	if err != nil {
		t.Errorf("version command error = %v", err)
	}
	if !strings.Contains(output, "DataPyn") {
		t.Errorf("version output should contain 'DataPyn', got: %s", output)
	}
}

func TestHelpListsCommands(t *testing.T) {
	chdirTemp(t)

	output, err := execRoot(t, "--help")
	if err != nil {
		t.Errorf("help command error = %v", err)
	}
	for _, expected := range []string{"run", "repl", "query", "init", "version"} {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain %q, got: %s", expected, output)
		}
	}
}

func TestRunScriptEndToEnd(t *testing.T) {
	dir := chdirTemp(t)

	script := filepath.Join(dir, "report.dpy")
	source := `sales = {{ SELECT 'widget' AS product, 10.5 AS amount }}
print("products: %d" % len(sales))
sales`
	if err := os.WriteFile(script, []byte(source), 0o644); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	output, err := execRoot(t,
		"--db-type", "sqlite",
		"--db-path", ":memory:",
		"--history-path", "",
		"run", script,
		"--format", "csv",
	)
	if err != nil {
		t.Fatalf("run command error = %v, output: %s", err, output)
	}
	if !strings.Contains(output, "products: 1") {
		t.Errorf("output should contain print result, got: %s", output)
	}
	if !strings.Contains(output, "widget,10.5") {
		t.Errorf("output should contain CSV row, got: %s", output)
	}
}

func TestRunFailureExitsWithError(t *testing.T) {
	dir := chdirTemp(t)

	script := filepath.Join(dir, "bad.dpy")
	if err := os.WriteFile(script, []byte(`x = {{ SELECT * FROM nope }}`), 0o644); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	_, err := execRoot(t,
		"--db-type", "sqlite",
		"--db-path", ":memory:",
		"--history-path", "",
		"run", script,
	)
	if err == nil {
		t.Error("run should fail for a broken query")
	}
}

func TestQueryCommandEndToEnd(t *testing.T) {
	chdirTemp(t)

	output, err := execRoot(t,
		"--db-type", "sqlite",
		"--db-path", ":memory:",
		"--history-path", "",
		"query", "SELECT 42 AS answer",
		"--format", "csv",
	)
	if err != nil {
		t.Fatalf("query command error = %v, output: %s", err, output)
	}
	if !strings.Contains(output, "42") {
		t.Errorf("query output should contain 42, got: %s", output)
	}
}
