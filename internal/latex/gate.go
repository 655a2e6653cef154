// Package latex gates candidate document versions through the external
// LaTeX toolchain. Only the pass/fail outcome and a diagnostic tail are
// consumed; the toolchain itself is an external collaborator.
package latex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type CompileResult struct {
	OK          bool
	Diagnostics string
}

// Runner executes the compiler command in a directory. Split out so
// tests can substitute canned outputs.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (string, error)
}

type Gate struct {
	command string
	args    []string
	runner  Runner
}

func NewGate(command string, args []string, runner Runner) *Gate {
	if command == "" {
		command = "latexmk"
	}
	if args == nil {
		args = []string{"-pdf", "-interaction=nonstopmode", "-halt-on-error"}
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Gate{command: command, args: args, runner: runner}
}

// Check compiles the candidate text in a scratch directory. It is a pure
// function of the text: a failed compile is reported in the result, not
// as an error. The returned error covers only infrastructure faults
// (scratch dir creation and the like).
func (g *Gate) Check(ctx context.Context, text string) (CompileResult, error) {
	dir, err := os.MkdirTemp("", "texrev-gate-*")
	if err != nil {
		return CompileResult{}, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	texPath := filepath.Join(dir, "main.tex")
	if err := os.WriteFile(texPath, []byte(text), 0o644); err != nil {
		return CompileResult{}, fmt.Errorf("failed to write candidate: %w", err)
	}

	args := append(append([]string{}, g.args...), "main.tex")
	output, err := g.runner.Run(ctx, dir, g.command, args...)
	if err != nil {
		return CompileResult{OK: false, Diagnostics: diagnosticTail(output)}, nil
	}
	return CompileResult{OK: true}, nil
}

// diagnosticTail extracts the error lines from a compiler log: every
// line starting with "!" plus its two context lines, capped so the
// editor prompt stays bounded.
func diagnosticTail(output string) string {
	lines := strings.Split(output, "\n")
	var picked []string
	for i, line := range lines {
		if !strings.HasPrefix(line, "!") {
			continue
		}
		end := i + 3
		if end > len(lines) {
			end = len(lines)
		}
		picked = append(picked, lines[i:end]...)
	}
	if len(picked) == 0 {
		// No TeX error markers; fall back to the log tail.
		start := len(lines) - 20
		if start < 0 {
			start = 0
		}
		picked = lines[start:]
	}
	if len(picked) > 60 {
		picked = picked[:60]
	}
	return strings.TrimSpace(strings.Join(picked, "\n"))
}
