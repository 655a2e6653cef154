package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func runRoot(t *testing.T, args ...string) string {
	t.Helper()
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("command failed: %v\n%s", err, buf.String())
	}
	return buf.String()
}

func withMockEnv(t *testing.T) func() {
	t.Helper()
	_, file, _, _ := runtime.Caller(0)
	root := filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
	_ = os.Setenv("TEXREV_MOCK", "1")
	_ = os.Setenv("TEXREV_MOCK_DIR", filepath.Join(root, "testdata", "critic"))
	_ = os.Setenv("TEXREV_EDITOR_FIXTURE", filepath.Join(root, "testdata", "editor", "patch.json"))
	_ = os.Setenv("TEXREV_DB_PATH", filepath.Join(t.TempDir(), "texrev.db"))
	_ = os.Setenv("TEXREV_PROMPT_DIR", filepath.Join(root, "prompts"))
	_ = os.Setenv("TEXREV_SCHEMA_DIR", filepath.Join(root, "schemas"))
	return func() {
		_ = os.Unsetenv("TEXREV_MOCK")
		_ = os.Unsetenv("TEXREV_MOCK_DIR")
		_ = os.Unsetenv("TEXREV_EDITOR_FIXTURE")
		_ = os.Unsetenv("TEXREV_DB_PATH")
		_ = os.Unsetenv("TEXREV_PROMPT_DIR")
		_ = os.Unsetenv("TEXREV_SCHEMA_DIR")
	}
}

func paperPath(t *testing.T) string {
	t.Helper()
	_, file, _, _ := runtime.Caller(0)
	root := filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
	return filepath.Join(root, "testdata", "paper.tex")
}

func TestRunCommandConverges(t *testing.T) {
	cleanup := withMockEnv(t)
	defer cleanup()

	output := runRoot(t, "run", paperPath(t), "--workdir", t.TempDir())
	if !strings.Contains(output, "outcome: converged") {
		t.Fatalf("expected converged outcome, got:\n%s", output)
	}
	if !strings.Contains(output, "head version: v1") {
		t.Fatalf("expected a committed revision, got:\n%s", output)
	}
	if !strings.Contains(output, "baseline score: 6.5") {
		t.Fatalf("expected baseline score, got:\n%s", output)
	}
}

func TestStatusAndIssuesAfterRun(t *testing.T) {
	cleanup := withMockEnv(t)
	defer cleanup()

	runRoot(t, "run", paperPath(t), "--workdir", t.TempDir())

	status := runRoot(t, "status")
	if !strings.Contains(status, "state: converged") {
		t.Fatalf("unexpected status output:\n%s", status)
	}
	if !strings.Contains(status, "1 resolved") {
		t.Fatalf("expected one resolved issue in status:\n%s", status)
	}

	issues := runRoot(t, "issues")
	if !strings.Contains(issues, "resolved") || !strings.Contains(issues, "sentence") {
		t.Fatalf("unexpected issues output:\n%s", issues)
	}

	none := runRoot(t, "issues", "--status", "open")
	if !strings.Contains(none, "No issues") {
		t.Fatalf("expected no open issues:\n%s", none)
	}
}

func TestReportCommand(t *testing.T) {
	cleanup := withMockEnv(t)
	defer cleanup()

	runRoot(t, "run", paperPath(t), "--workdir", t.TempDir())

	report := runRoot(t, "report")
	if !strings.Contains(report, "# Revision Report") {
		t.Fatalf("missing report header:\n%s", report)
	}
	if !strings.Contains(report, "| 1 | sentences |") {
		t.Fatalf("missing pass row:\n%s", report)
	}
	if !strings.Contains(report, "v0 -> v1") {
		t.Fatalf("missing version change:\n%s", report)
	}
}

func TestResumeRefusesFinishedRun(t *testing.T) {
	cleanup := withMockEnv(t)
	defer cleanup()

	runRoot(t, "run", paperPath(t), "--workdir", t.TempDir())

	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"resume"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "already finished") {
		t.Fatalf("expected finished-run error, got %v", err)
	}
}

func TestConfigCommand(t *testing.T) {
	cleanup := withMockEnv(t)
	defer cleanup()

	output := runRoot(t, "config")
	if !strings.Contains(output, "latexmk") {
		t.Fatalf("expected compiler defaults in config output:\n%s", output)
	}
}
