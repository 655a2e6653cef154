package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Template names under the prompts directory.
const (
	Grading      = "grading.txt"
	Critique     = "critique.txt"
	EditorSystem = "editor-system.txt"
	EditorUser   = "editor-user.txt"
)

// Schema names under the schemas directory.
const (
	GradeSchema    = "grade.schema.json"
	FindingsSchema = "findings.schema.json"
	PatchSchema    = "patch.schema.json"
)

type Vars struct {
	Category    string
	Focus       string
	Excerpt     string
	Issues      string
	Diagnostics string
}

func Load(name string) (string, error) {
	path := filepath.Join(promptDir(), name)
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt template %s: %w", name, err)
	}
	return string(content), nil
}

func Render(template string, vars Vars) string {
	out := template
	out = strings.ReplaceAll(out, "{CATEGORY}", vars.Category)
	out = strings.ReplaceAll(out, "{FOCUS}", vars.Focus)
	out = strings.ReplaceAll(out, "{EXCERPT}", vars.Excerpt)
	out = strings.ReplaceAll(out, "{ISSUES}", vars.Issues)
	out = strings.ReplaceAll(out, "{DIAGNOSTICS}", renderDiagnostics(vars.Diagnostics))
	return out
}

func renderDiagnostics(diag string) string {
	if strings.TrimSpace(diag) == "" {
		return "None"
	}
	return diag
}

func SchemaPath(name string) string {
	return filepath.Join(schemaDir(), name)
}

func promptDir() string {
	if dir := os.Getenv("TEXREV_PROMPT_DIR"); dir != "" {
		return dir
	}
	return "prompts"
}

func schemaDir() string {
	if dir := os.Getenv("TEXREV_SCHEMA_DIR"); dir != "" {
		return dir
	}
	return "schemas"
}
