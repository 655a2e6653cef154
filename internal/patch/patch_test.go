package patch

import (
	"errors"
	"strings"
	"testing"
)

const doc = `\section{Introduction}
Generative models are widely used.
\section{Methods}
We describe our approach here.
`

func TestApplyReplaceInsertDelete(t *testing.T) {
	p := Patch{Operations: []Operation{
		{Op: OpReplace, OriginalText: "widely used", NewText: "increasingly common"},
		{Op: OpInsert, Anchor: "\\section{Methods}", NewText: "\n\\label{sec:methods}"},
		{Op: OpDelete, OriginalText: " here"},
	}}
	out, err := Apply(doc, p)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.Contains(out, "increasingly common") {
		t.Fatalf("replace not applied: %q", out)
	}
	if !strings.Contains(out, "\\section{Methods}\n\\label{sec:methods}") {
		t.Fatalf("insert not applied: %q", out)
	}
	if strings.Contains(out, "approach here") {
		t.Fatalf("delete not applied: %q", out)
	}
}

func TestApplySecondTimeFailsPrecondition(t *testing.T) {
	p := Patch{Operations: []Operation{
		{Op: OpReplace, OriginalText: "widely used", NewText: "increasingly common"},
	}}
	out, err := Apply(doc, p)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if _, err := Apply(out, p); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition on second apply, got %v", err)
	}
}

func TestApplyAmbiguousMatchRejected(t *testing.T) {
	p := Patch{Operations: []Operation{
		{Op: OpReplace, OriginalText: "\\section", NewText: "\\chapter"},
	}}
	if _, err := Apply(doc, p); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition for ambiguous match, got %v", err)
	}
}

func TestApplyOverlapRejectedAtomically(t *testing.T) {
	p := Patch{Operations: []Operation{
		{Op: OpReplace, OriginalText: "widely used", NewText: "popular"},
		{Op: OpDelete, OriginalText: "are widely"},
	}}
	_, err := Apply(doc, p)
	if !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
}

func TestApplyFailedOpLeavesNothingApplied(t *testing.T) {
	p := Patch{Operations: []Operation{
		{Op: OpReplace, OriginalText: "widely used", NewText: "popular"},
		{Op: OpDelete, OriginalText: "no such text anywhere"},
	}}
	if _, err := Apply(doc, p); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
}

func TestApplyInsertInsideReplacedRangeRejected(t *testing.T) {
	p := Patch{Operations: []Operation{
		{Op: OpReplace, OriginalText: "widely used", NewText: "popular"},
		{Op: OpInsert, Anchor: "widely", NewText: " not"},
	}}
	if _, err := Apply(doc, p); !errors.Is(err, ErrOverlap) {
		t.Fatalf("expected ErrOverlap, got %v", err)
	}
}

func TestApplyEmptyPatch(t *testing.T) {
	if _, err := Apply(doc, Patch{}); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition for empty patch, got %v", err)
	}
}

func TestApplyOrderIndependentOfOperationOrder(t *testing.T) {
	forward := Patch{Operations: []Operation{
		{Op: OpReplace, OriginalText: "Introduction", NewText: "Overview"},
		{Op: OpReplace, OriginalText: "our approach", NewText: "the method"},
	}}
	backward := Patch{Operations: []Operation{
		{Op: OpReplace, OriginalText: "our approach", NewText: "the method"},
		{Op: OpReplace, OriginalText: "Introduction", NewText: "Overview"},
	}}
	a, err := Apply(doc, forward)
	if err != nil {
		t.Fatalf("forward apply: %v", err)
	}
	b, err := Apply(doc, backward)
	if err != nil {
		t.Fatalf("backward apply: %v", err)
	}
	if a != b {
		t.Fatalf("operation order changed the result:\n%q\n%q", a, b)
	}
}
