// Package critic talks to the external review service in its two modes:
// one-shot grading of the whole document, and per-pass critique scoped
// to a single category. The transport is an exec'd provider CLI whose
// JSON output is schema-validated before it is trusted.
package critic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/brianndofor/texrev/internal/config"
	"github.com/brianndofor/texrev/internal/prompt"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

type Adapter interface {
	// Grade submits the full document once and returns a score plus the
	// initial findings. Called exactly once per run, before any edits.
	Grade(ctx context.Context, document []byte) (Report, error)

	// Critique reviews an excerpt with the pass's category focus.
	Critique(ctx context.Context, excerpt, category, focus string) ([]Finding, error)
}

// CommandAdapter shells out to a provider CLI (claude-compatible flags:
// -p for a one-shot prompt, --output-format json, --json-schema).
type CommandAdapter struct {
	command string
	args    []string
}

func NewCommandAdapter(cfg config.ProviderConfig) *CommandAdapter {
	command := cfg.Command
	if command == "" {
		command = "claude"
	}
	return &CommandAdapter{command: command, args: cfg.Args}
}

func (c *CommandAdapter) Grade(ctx context.Context, document []byte) (Report, error) {
	template, err := prompt.Load(prompt.Grading)
	if err != nil {
		return Report{}, err
	}
	promptText := prompt.Render(template, prompt.Vars{Excerpt: string(document)})

	raw, err := c.run(ctx, promptText, prompt.SchemaPath(prompt.GradeSchema))
	if err != nil {
		return Report{}, err
	}
	var report Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return Report{}, fmt.Errorf("failed to parse grade response: %w", err)
	}
	return report, nil
}

func (c *CommandAdapter) Critique(ctx context.Context, excerpt, category, focus string) ([]Finding, error) {
	template, err := prompt.Load(prompt.Critique)
	if err != nil {
		return nil, err
	}
	promptText := prompt.Render(template, prompt.Vars{
		Category: category,
		Focus:    focus,
		Excerpt:  excerpt,
	})

	raw, err := c.run(ctx, promptText, prompt.SchemaPath(prompt.FindingsSchema))
	if err != nil {
		return nil, err
	}
	var resp struct {
		Findings []Finding `json:"findings"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse critique response: %w", err)
	}
	return resp.Findings, nil
}

func (c *CommandAdapter) run(ctx context.Context, promptText, schemaPath string) ([]byte, error) {
	schemaContent, err := loadSchemaContent(schemaPath)
	if err != nil {
		return nil, err
	}

	args := append(append([]string{}, c.args...), "-p", "--output-format", "json", "--json-schema", schemaContent, promptText)
	cmd := exec.CommandContext(ctx, c.command, args...)
	cmd.Stdin = nil
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("critic provider failed: %w\n%s", err, stderr.String())
	}

	structured, err := extractStructuredOutput(stdout.Bytes())
	if err != nil {
		return nil, err
	}
	if err := ValidateJSON(schemaPath, structured); err != nil {
		return nil, err
	}
	return structured, nil
}

// providerResponse is the wrapper emitted by the provider CLI when run
// with --output-format json and a schema.
type providerResponse struct {
	Type             string          `json:"type"`
	Subtype          string          `json:"subtype"`
	IsError          bool            `json:"is_error"`
	StructuredOutput json.RawMessage `json:"structured_output"`
}

func extractStructuredOutput(raw []byte) ([]byte, error) {
	var resp providerResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse provider response wrapper: %w", err)
	}
	if resp.IsError {
		return nil, fmt.Errorf("critic provider returned an error response: %s", string(raw))
	}
	if len(resp.StructuredOutput) == 0 {
		return nil, fmt.Errorf("critic provider response missing structured_output field")
	}
	return resp.StructuredOutput, nil
}

func loadSchemaContent(schemaPath string) (string, error) {
	content, err := os.ReadFile(schemaPath)
	if err != nil {
		return "", fmt.Errorf("failed to read schema file: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, content); err != nil {
		return strings.TrimSpace(string(content)), nil
	}
	return buf.String(), nil
}

// ValidateJSON checks data against the schema at schemaPath. Shared with
// the editor adapter, which validates patch responses the same way.
func ValidateJSON(schemaPath string, data []byte) error {
	abspath, err := filepath.Abs(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to resolve schema path: %w", err)
	}
	schema, err := jsonschema.Compile("file://" + abspath)
	if err != nil {
		return fmt.Errorf("failed to load schema: %w", err)
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("provider output failed schema validation: %w", err)
	}
	return nil
}
