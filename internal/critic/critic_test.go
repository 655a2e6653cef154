package critic

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func repoRoot(t *testing.T) string {
	t.Helper()
	_, file, _, _ := runtime.Caller(0)
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}

func TestExtractStructuredOutput(t *testing.T) {
	raw := []byte(`{"type":"result","is_error":false,"structured_output":{"findings":[]}}`)
	out, err := extractStructuredOutput(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if string(out) != `{"findings":[]}` {
		t.Fatalf("unexpected structured output: %s", out)
	}
}

func TestExtractStructuredOutputErrorResponse(t *testing.T) {
	raw := []byte(`{"type":"result","is_error":true,"structured_output":{}}`)
	if _, err := extractStructuredOutput(raw); err == nil {
		t.Fatalf("expected error for is_error response")
	}
}

func TestExtractStructuredOutputMissingField(t *testing.T) {
	if _, err := extractStructuredOutput([]byte(`{"type":"result"}`)); err == nil {
		t.Fatalf("expected error for missing structured_output")
	}
}

func TestValidateJSONAgainstFindingsSchema(t *testing.T) {
	schema := filepath.Join(repoRoot(t), "schemas", "findings.schema.json")
	valid := []byte(`{"findings":[{"severity":"P0","category":"structure","location":"sec:intro","description":"missing thesis"}]}`)
	if err := ValidateJSON(schema, valid); err != nil {
		t.Fatalf("expected valid payload: %v", err)
	}
	invalid := []byte(`{"findings":[{"severity":"urgent"}]}`)
	if err := ValidateJSON(schema, invalid); err == nil {
		t.Fatalf("expected schema violation")
	}
}

func TestFakeAdapterGradeAndCritique(t *testing.T) {
	dir := t.TempDir()
	grade := `{"score":7.5,"findings":[{"severity":"P0","category":"structure","location":"sec:intro","description":"missing thesis"}]}`
	if err := os.WriteFile(filepath.Join(dir, "grade.json"), []byte(grade), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	critique := `{"findings":[{"severity":"P1","category":"coherence","location":"sec:2","description":"abrupt transition"}]}`
	if err := os.WriteFile(filepath.Join(dir, "critique_coherence.json"), []byte(critique), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	fake := NewFakeAdapter(dir)
	report, err := fake.Grade(context.Background(), []byte("doc"))
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if report.Score != 7.5 || len(report.Findings) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}

	findings, err := fake.Critique(context.Background(), "excerpt", "coherence", "flow")
	if err != nil {
		t.Fatalf("critique: %v", err)
	}
	if len(findings) != 1 || findings[0].Category != "coherence" {
		t.Fatalf("unexpected findings: %+v", findings)
	}

	// A category with no fixture reports no findings.
	findings, err = fake.Critique(context.Background(), "excerpt", "polish", "typos")
	if err != nil {
		t.Fatalf("critique without fixture: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("expected no findings, got %+v", findings)
	}
}

func TestLoadSchemaContentCompacts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.json")
	if err := os.WriteFile(path, []byte("{\n  \"type\": \"object\"\n}\n"), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	content, err := loadSchemaContent(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if strings.ContainsAny(content, "\n ") {
		t.Fatalf("expected compact JSON, got %q", content)
	}
}
