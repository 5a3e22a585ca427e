package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/aadjones/kent-repertory-etl/internal/repertory"
)

const nestedDoc = `
<html><head><title>Kent Repertory KENT0000</title></head><body>
<dir>
  <p>MIND p. 1</p>
  <p>----------</p>
  <p><b>ABSENT-MINDED: <font COLOR="#ff0000">Acon.</font>, calc.</b></p>
  <dir>
    <p><b>morning: <i><font COLOR="#0000ff">tarent.</font></i></b></p>
    <p>Extra detail for morning</p>
  </dir>
</dir>
</body></html>`

const flatDoc = `
<html><head><title>Kent Repertory KENT0000</title></head><body>
<p>MIND p. 1</p>
<p>----------</p>
<p><b>ABSENT-MINDED: <font COLOR="#ff0000">Acon.</font>, calc.</b></p>
<p>&#160;&#160;<b>morning: <i><font COLOR="#0000ff">tarent.</font></i></b></p>
<p>&#160;&#160;Extra detail for morning</p>
</body></html>`

func parsePages(t *testing.T, doc string) []repertory.PageGroup {
	t.Helper()
	src := &HTMLSource{}
	stream, err := src.Nodes(strings.NewReader(doc), "kent0000_P1.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return BuildPages(stream.Nodes, "MIND")
}

func TestHTMLSource_NestedShape(t *testing.T) {
	pages := parsePages(t, nestedDoc)

	if len(pages) != 1 {
		t.Fatalf("expected 1 page group, got %d", len(pages))
	}
	if pages[0].Page != "P1" {
		t.Errorf("expected page P1, got %q", pages[0].Page)
	}
	if len(pages[0].Rubrics) != 1 {
		t.Fatalf("expected 1 top-level rubric, got %d", len(pages[0].Rubrics))
	}

	rub := pages[0].Rubrics[0]
	if rub.Title != "ABSENT-MINDED" {
		t.Errorf("expected title ABSENT-MINDED, got %q", rub.Title)
	}
	if len(rub.Remedies) != 2 {
		t.Fatalf("expected 2 remedies, got %v", rub.Remedies)
	}
	if rub.Remedies[0].Name != "Acon." || rub.Remedies[0].Grade != 3 {
		t.Errorf("expected Acon. grade 3, got %q grade %d", rub.Remedies[0].Name, rub.Remedies[0].Grade)
	}
	if rub.Remedies[1].Name != "calc." || rub.Remedies[1].Grade != 1 {
		t.Errorf("expected calc. grade 1, got %q grade %d", rub.Remedies[1].Name, rub.Remedies[1].Grade)
	}

	if len(rub.Subrubrics) != 1 {
		t.Fatalf("expected 1 subrubric, got %d", len(rub.Subrubrics))
	}
	sub := rub.Subrubrics[0]
	if sub.Title != "morning" {
		t.Errorf("expected subrubric title morning, got %q", sub.Title)
	}
	if len(sub.Remedies) != 1 || sub.Remedies[0].Name != "tarent." || sub.Remedies[0].Grade != 2 {
		t.Errorf("expected tarent. grade 2, got %v", sub.Remedies)
	}
	if !strings.Contains(sub.Description, "Extra detail for morning") {
		t.Errorf("expected fragment appended to description, got %q", sub.Description)
	}
}

func TestHTMLSource_ShapeEquivalence(t *testing.T) {
	nested := parsePages(t, nestedDoc)
	flat := parsePages(t, flatDoc)

	if len(nested) != len(flat) {
		t.Fatalf("page count differs: nested %d, flat %d", len(nested), len(flat))
	}
	for i := range nested {
		if nested[i].Page != flat[i].Page {
			t.Errorf("page %d label differs: %q vs %q", i, nested[i].Page, flat[i].Page)
		}
		compareRubrics(t, nested[i].Rubrics, flat[i].Rubrics)
	}
}

// compareRubrics checks structural identity modulo description whitespace.
func compareRubrics(t *testing.T, a, b []repertory.Rubric) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("rubric count differs: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Title != b[i].Title {
			t.Errorf("title differs: %q vs %q", a[i].Title, b[i].Title)
		}
		if len(a[i].Remedies) != len(b[i].Remedies) {
			t.Fatalf("remedy count differs for %q: %v vs %v", a[i].Title, a[i].Remedies, b[i].Remedies)
		}
		for j := range a[i].Remedies {
			if a[i].Remedies[j] != b[i].Remedies[j] {
				t.Errorf("remedy %d differs for %q: %v vs %v", j, a[i].Title, a[i].Remedies[j], b[i].Remedies[j])
			}
		}
		compareRubrics(t, a[i].Subrubrics, b[i].Subrubrics)
	}
}

func TestHTMLSource_PageBoundaryNeverARubric(t *testing.T) {
	pages := parsePages(t, flatDoc)
	var check func(rubrics []repertory.Rubric)
	check = func(rubrics []repertory.Rubric) {
		for _, r := range rubrics {
			if strings.Contains(strings.ToLower(r.Title), "p. 1") {
				t.Errorf("page boundary materialized as rubric %q", r.Title)
			}
			check(r.Subrubrics)
		}
	}
	for _, p := range pages {
		check(p.Rubrics)
	}
}

func TestHTMLSource_MultiplePages(t *testing.T) {
	doc := `<html><body><dir>
	<p>MIND p. 1</p>
	<p><b>ANGER: bell.</b></p>
	<p>MIND p. 2</p>
	<p><b>ANXIETY: acon.</b></p>
	</dir></body></html>`

	pages := parsePages(t, doc)
	if len(pages) != 2 {
		t.Fatalf("expected 2 page groups, got %d", len(pages))
	}
	if pages[0].Page != "P1" || pages[1].Page != "P2" {
		t.Errorf("unexpected page labels %q, %q", pages[0].Page, pages[1].Page)
	}
	if len(pages[1].Rubrics) != 1 || pages[1].Rubrics[0].Title != "ANXIETY" {
		t.Errorf("expected ANXIETY on P2, got %v", pages[1].Rubrics)
	}
}

func TestHTMLSource_ImplicitFirstPage(t *testing.T) {
	doc := `<html><body><dir><p><b>ANGER: bell.</b></p></dir></body></html>`
	pages := parsePages(t, doc)
	if len(pages) != 1 || pages[0].Page != "P1" {
		t.Fatalf("expected implicit P1 group, got %v", pages)
	}
}

func TestHTMLSource_RelatedRubrics(t *testing.T) {
	doc := `<html><body><dir><p><b>ABANDONED (See Forsaken)</b></p></dir></body></html>`
	pages := parsePages(t, doc)
	if len(pages) != 1 || len(pages[0].Rubrics) != 1 {
		t.Fatalf("expected a single rubric, got %v", pages)
	}
	rub := pages[0].Rubrics[0]
	if rub.Title != "ABANDONED" {
		t.Errorf("expected parenthetical stripped from title, got %q", rub.Title)
	}
	if len(rub.RelatedRubrics) != 1 || rub.RelatedRubrics[0] != "Forsaken" {
		t.Errorf("expected related rubric Forsaken, got %v", rub.RelatedRubrics)
	}
}

func TestHTMLSource_SubjectTitleSkipped(t *testing.T) {
	doc := `<html><body><dir>
	<p>MIND p. 1</p>
	<p><b>MIND</b></p>
	<p><b>ANGER: bell.</b></p>
	</dir></body></html>`

	pages := parsePages(t, doc)
	if len(pages) != 1 {
		t.Fatalf("expected 1 page group, got %d", len(pages))
	}
	if len(pages[0].Rubrics) != 1 || pages[0].Rubrics[0].Title != "ANGER" {
		t.Errorf("expected the bare subject heading to be dropped, got %v", pages[0].Rubrics)
	}
}

func TestHTMLSource_FlatAmbiguousDepth(t *testing.T) {
	doc := `<html><body>
	<p><b>ANGER: bell.</b></p>
	<p>&#160;&#160;&#160;&#160;stray detail far too deep</p>
	</body></html>`

	src := &HTMLSource{}
	_, err := src.Nodes(strings.NewReader(doc), "kent.html")
	var depthErr *AmbiguousDepthError
	if !errors.As(err, &depthErr) {
		t.Fatalf("expected AmbiguousDepthError, got %v", err)
	}
}

func TestHTMLSource_FlatClampedRubricWarns(t *testing.T) {
	doc := `<html><body>
	<p><b>ANGER: bell.</b></p>
	<p>&#160;&#160;&#160;&#160;<b>morning: acon.</b></p>
	</body></html>`

	src := &HTMLSource{}
	stream, err := src.Nodes(strings.NewReader(doc), "kent.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stream.Warnings) == 0 {
		t.Fatal("expected a clamped-depth warning")
	}
	pages := BuildPages(stream.Nodes, "MIND")
	if len(pages[0].Rubrics) != 1 || len(pages[0].Rubrics[0].Subrubrics) != 1 {
		t.Errorf("expected clamped rubric to nest one level deep, got %v", pages[0].Rubrics)
	}
}

func TestHTMLSource_DocumentTitle(t *testing.T) {
	src := &HTMLSource{}
	stream, err := src.Nodes(strings.NewReader(nestedDoc), "kent0000_P1.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stream.Title != "Kent Repertory KENT0000" {
		t.Errorf("expected document title, got %q", stream.Title)
	}
}

func TestHTMLSource_MalformedMarkerWarns(t *testing.T) {
	doc := `<html><body><dir><p><b>ANGER: <font color="#ff0000">bell.</b></p></dir></body></html>`
	src := &HTMLSource{}
	stream, err := src.Nodes(strings.NewReader(doc), "kent.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, w := range stream.Warnings {
		if w.Kind == repertory.WarnMalformedMarkup {
			found = true
		}
	}
	if !found {
		t.Error("expected a malformed-markup warning")
	}
	pages := BuildPages(stream.Nodes, "")
	if len(pages) != 1 || len(pages[0].Rubrics) != 1 {
		t.Fatalf("expected content recovered, got %v", pages)
	}
	remedies := pages[0].Rubrics[0].Remedies
	if len(remedies) != 1 || remedies[0].Name != "bell." {
		t.Errorf("expected the mention recovered despite the unclosed tag, got %v", remedies)
	}
}
