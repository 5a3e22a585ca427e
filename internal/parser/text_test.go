package parser

import (
	"errors"
	"strings"
	"testing"
)

func TestTextSource_IndentedHierarchy(t *testing.T) {
	input := strings.Join([]string{
		"MIND p. 1",
		"----------",
		"ANGER: acon., bell.",
		"\tmorning: cham.",
		"\t\twaking, on: lyc.",
		"ANXIETY: ars.",
	}, "\n")

	src := &TextSource{}
	stream, err := src.Nodes(strings.NewReader(input), "kent0000.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pages := BuildPages(stream.Nodes, "MIND")

	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	rubrics := pages[0].Rubrics
	if len(rubrics) != 2 {
		t.Fatalf("expected 2 top-level rubrics, got %d", len(rubrics))
	}
	anger := rubrics[0]
	if anger.Title != "ANGER" || len(anger.Remedies) != 2 {
		t.Errorf("unexpected first rubric %v", anger)
	}
	if len(anger.Subrubrics) != 1 || anger.Subrubrics[0].Title != "morning" {
		t.Fatalf("expected morning subrubric, got %v", anger.Subrubrics)
	}
	deep := anger.Subrubrics[0].Subrubrics
	if len(deep) != 1 || deep[0].Title != "waking, on" {
		t.Errorf("expected waking subrubric, got %v", deep)
	}
	if rubrics[1].Title != "ANXIETY" {
		t.Errorf("expected second rubric ANXIETY, got %q", rubrics[1].Title)
	}
}

func TestTextSource_DepthJumpOnFragmentFails(t *testing.T) {
	input := "ANGER: acon.\n\t\t\tlost detail"
	src := &TextSource{}
	_, err := src.Nodes(strings.NewReader(input), "kent.txt")
	var depthErr *AmbiguousDepthError
	if !errors.As(err, &depthErr) {
		t.Fatalf("expected AmbiguousDepthError, got %v", err)
	}
}

func TestTextSource_DepthResetAfterPageBreak(t *testing.T) {
	input := strings.Join([]string{
		"ANGER: acon.",
		"\tmorning: cham.",
		"MIND p. 2",
		"\tANXIETY: ars.",
	}, "\n")

	src := &TextSource{}
	stream, err := src.Nodes(strings.NewReader(input), "kent.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pages := BuildPages(stream.Nodes, "MIND")
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if len(pages[1].Rubrics) != 1 || pages[1].Rubrics[0].Title != "ANXIETY" {
		t.Errorf("expected ANXIETY at top of P2, got %v", pages[1].Rubrics)
	}
}
