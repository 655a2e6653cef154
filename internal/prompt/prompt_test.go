package prompt

import "testing"

func TestRenderReplacesPlaceholders(t *testing.T) {
	template := "Pass: {CATEGORY}\nFocus: {FOCUS}\nDiagnostics: {DIAGNOSTICS}"
	out := Render(template, Vars{Category: "structure", Focus: "organization"})
	expected := "Pass: structure\nFocus: organization\nDiagnostics: None"
	if out != expected {
		t.Fatalf("unexpected render output: %q", out)
	}
}

func TestRenderKeepsDiagnosticsWhenPresent(t *testing.T) {
	out := Render("{DIAGNOSTICS}", Vars{Diagnostics: "! Undefined control sequence."})
	if out != "! Undefined control sequence." {
		t.Fatalf("unexpected render output: %q", out)
	}
}
