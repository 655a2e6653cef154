// Package patch applies structured edit operations to a document as an
// atomic unit: every operation is located against the input text before
// anything is spliced, so a rejected patch leaves no partial edits.
package patch

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrPrecondition means an operation's original text no longer matches
	// the document (it drifted since the patch was computed), or matches
	// ambiguously.
	ErrPrecondition = errors.New("patch precondition failed")

	// ErrOverlap means two operations in the same patch target overlapping
	// ranges. Overlaps are rejected rather than merged; the editor is
	// expected to resolve them itself.
	ErrOverlap = errors.New("patch operations overlap")
)

type OpKind string

const (
	OpReplace OpKind = "replace"
	OpInsert  OpKind = "insert"
	OpDelete  OpKind = "delete"
)

// Operation is one edit step. Replace and delete carry OriginalText as a
// precondition; insert places NewText immediately after Anchor.
type Operation struct {
	Op           OpKind `json:"op"`
	Anchor       string `json:"anchor,omitempty"`
	OriginalText string `json:"original_text,omitempty"`
	NewText      string `json:"new_text,omitempty"`
}

type Patch struct {
	Operations []Operation `json:"operations"`
	Rationale  string      `json:"rationale,omitempty"`
}

func (p Patch) IsZero() bool {
	return len(p.Operations) == 0
}

// span is a located operation: the half-open byte range it consumes in
// the input text. Inserts are zero-width.
type span struct {
	start int
	end   int
	text  string // replacement text spliced into [start, end)
}

// Apply applies every operation or none. Each replace/delete must match
// its OriginalText exactly once in the input; each insert anchor likewise.
// Ranges are located against the input text, checked pairwise for
// overlap, then spliced from the highest offset down so earlier splices
// cannot shift later ones.
func Apply(text string, p Patch) (string, error) {
	if len(p.Operations) == 0 {
		return "", fmt.Errorf("patch has no operations: %w", ErrPrecondition)
	}

	spans := make([]span, 0, len(p.Operations))
	for i, op := range p.Operations {
		sp, err := locate(text, op)
		if err != nil {
			return "", fmt.Errorf("operation %d (%s): %w", i, op.Op, err)
		}
		spans = append(spans, sp)
	}

	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			if overlaps(spans[i], spans[j]) {
				return "", fmt.Errorf("operations %d and %d: %w", i, j, ErrOverlap)
			}
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start > spans[j].start })
	out := text
	for _, sp := range spans {
		out = out[:sp.start] + sp.text + out[sp.end:]
	}
	return out, nil
}

func locate(text string, op Operation) (span, error) {
	switch op.Op {
	case OpReplace, OpDelete:
		if op.OriginalText == "" {
			return span{}, fmt.Errorf("missing original_text: %w", ErrPrecondition)
		}
		start, err := uniqueIndex(text, op.OriginalText)
		if err != nil {
			return span{}, err
		}
		repl := op.NewText
		if op.Op == OpDelete {
			repl = ""
		}
		return span{start: start, end: start + len(op.OriginalText), text: repl}, nil
	case OpInsert:
		if op.Anchor == "" {
			return span{}, fmt.Errorf("missing anchor: %w", ErrPrecondition)
		}
		start, err := uniqueIndex(text, op.Anchor)
		if err != nil {
			return span{}, err
		}
		at := start + len(op.Anchor)
		return span{start: at, end: at, text: op.NewText}, nil
	default:
		return span{}, fmt.Errorf("unknown op %q: %w", op.Op, ErrPrecondition)
	}
}

func uniqueIndex(text, needle string) (int, error) {
	switch strings.Count(text, needle) {
	case 0:
		return 0, fmt.Errorf("text %q not found: %w", truncate(needle, 60), ErrPrecondition)
	case 1:
		return strings.Index(text, needle), nil
	default:
		return 0, fmt.Errorf("text %q is ambiguous: %w", truncate(needle, 60), ErrPrecondition)
	}
}

func overlaps(a, b span) bool {
	// A zero-width insert strictly inside the other range counts as an
	// overlap; touching at a boundary does not.
	if a.start == a.end {
		return a.start > b.start && a.start < b.end
	}
	if b.start == b.end {
		return b.start > a.start && b.start < a.end
	}
	return a.start < b.end && b.start < a.end
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
