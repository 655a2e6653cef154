package critic

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FakeAdapter serves canned responses from a fixture directory:
// grade.json for grading, critique_<category>.json per pass. A missing
// critique fixture means the category has no findings.
type FakeAdapter struct {
	Root string
}

func NewFakeAdapter(root string) *FakeAdapter {
	return &FakeAdapter{Root: root}
}

func (f *FakeAdapter) Grade(ctx context.Context, document []byte) (Report, error) {
	_ = ctx
	_ = document
	data, err := os.ReadFile(filepath.Join(f.Root, "grade.json"))
	if err != nil {
		return Report{}, fmt.Errorf("failed to read grade fixture: %w", err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return Report{}, fmt.Errorf("invalid grade fixture: %w", err)
	}
	return report, nil
}

func (f *FakeAdapter) Critique(ctx context.Context, excerpt, category, focus string) ([]Finding, error) {
	_ = ctx
	_ = excerpt
	_ = focus
	data, err := os.ReadFile(filepath.Join(f.Root, "critique_"+category+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read critique fixture: %w", err)
	}
	var resp struct {
		Findings []Finding `json:"findings"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("invalid critique fixture: %w", err)
	}
	return resp.Findings, nil
}
