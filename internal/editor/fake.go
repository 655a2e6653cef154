package editor

import (
	"context"
	"fmt"
	"os"

	"github.com/brianndofor/texrev/internal/ledger"
	"github.com/brianndofor/texrev/internal/patch"
)

// FakeAdapter returns a canned patch from a fixture file. The fixture
// goes through the same schema validation as real editor output.
type FakeAdapter struct {
	FixturePath string
}

func NewFakeAdapter(path string) *FakeAdapter {
	return &FakeAdapter{FixturePath: path}
}

func (f *FakeAdapter) ProposePatch(ctx context.Context, issues []ledger.Issue, excerpt, priorDiagnostics string) (patch.Patch, error) {
	_ = ctx
	_ = issues
	_ = excerpt
	_ = priorDiagnostics
	data, err := os.ReadFile(f.FixturePath)
	if err != nil {
		return patch.Patch{}, fmt.Errorf("failed to read editor fixture: %w", err)
	}
	return DecodePatch(data)
}
