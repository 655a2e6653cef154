package latex

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type ExecRunner struct{}

func (r ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("command failed: %s %s: %w", name, strings.Join(args, " "), err)
	}
	return string(output), nil
}

// FakeRunner compiles everything successfully. Used when TEXREV_MOCK is
// set so CLI tests do not need a TeX installation.
type FakeRunner struct{}

func (f FakeRunner) Run(ctx context.Context, dir string, name string, args ...string) (string, error) {
	_ = ctx
	_ = dir
	return "mock latexmk output", nil
}
