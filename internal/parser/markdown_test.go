package parser

import (
	"strings"
	"testing"
)

func TestMarkdownSource_HeadingsAndGrades(t *testing.T) {
	input := strings.Join([]string{
		"MIND p. 1",
		"",
		"# ANGER: **acon.**, bell.",
		"",
		"## morning: *cham.*",
		"",
		"violent outbursts (see Rage)",
		"",
		"# ANXIETY: ars.",
	}, "\n")

	src := &MarkdownSource{}
	stream, err := src.Nodes(strings.NewReader(input), "kent0000.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pages := BuildPages(stream.Nodes, "MIND")

	if len(pages) != 1 || pages[0].Page != "P1" {
		t.Fatalf("expected a single P1 group, got %v", pages)
	}
	rubrics := pages[0].Rubrics
	if len(rubrics) != 2 {
		t.Fatalf("expected 2 top-level rubrics, got %d", len(rubrics))
	}

	anger := rubrics[0]
	if anger.Title != "ANGER" {
		t.Errorf("expected title ANGER, got %q", anger.Title)
	}
	if len(anger.Remedies) != 2 {
		t.Fatalf("expected 2 remedies, got %v", anger.Remedies)
	}
	if anger.Remedies[0].Name != "acon." || anger.Remedies[0].Grade != 3 {
		t.Errorf("expected strong mention acon. grade 3, got %v", anger.Remedies[0])
	}
	if anger.Remedies[1].Name != "bell." || anger.Remedies[1].Grade != 1 {
		t.Errorf("expected bare mention bell. grade 1, got %v", anger.Remedies[1])
	}

	if len(anger.Subrubrics) != 1 {
		t.Fatalf("expected 1 subrubric, got %v", anger.Subrubrics)
	}
	morning := anger.Subrubrics[0]
	if morning.Title != "morning" {
		t.Errorf("expected subrubric morning, got %q", morning.Title)
	}
	if len(morning.Remedies) != 1 || morning.Remedies[0].Grade != 2 {
		t.Errorf("expected em mention grade 2, got %v", morning.Remedies)
	}
	if !strings.Contains(morning.Description, "violent outbursts") {
		t.Errorf("expected fragment in description, got %q", morning.Description)
	}
	if strings.Contains(morning.Description, "Rage") {
		t.Errorf("expected parenthetical stripped from description, got %q", morning.Description)
	}
}

func TestMarkdownSource_DecorativeDropped(t *testing.T) {
	input := "---\n\n# ANGER: acon.\n"
	src := &MarkdownSource{}
	stream, err := src.Nodes(strings.NewReader(input), "kent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, n := range stream.Nodes {
		if n.Kind == NodeFragment && n.Description == "" {
			t.Errorf("decorative block leaked into the stream: %+v", n)
		}
	}
	if len(stream.Nodes) != 1 || stream.Nodes[0].Kind != NodeRubric {
		t.Fatalf("expected a single rubric node, got %v", stream.Nodes)
	}
}
