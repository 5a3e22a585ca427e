package parser

import (
	"strings"

	"github.com/aadjones/kent-repertory-etl/internal/repertory"
	"github.com/aadjones/kent-repertory-etl/internal/textutil"
)

// buildRubric is the mutable construction node. The immutable repertory tree
// is only materialized once the whole stream has been consumed, so the open
// path can stay an explicit stack instead of relying on call-stack recursion.
type buildRubric struct {
	title    string
	related  []string
	desc     []string
	remedies []repertory.Remedy
	children []*buildRubric
}

type buildPage struct {
	label   string
	rubrics []*buildRubric
}

// BuildPages consumes a depth-annotated node stream and assembles the
// page -> rubric -> subrubric tree. Rubric nodes close every open rubric at
// their depth or deeper; page boundaries close everything and open a new
// group; fragments attach to the deepest open rubric and are discarded when
// none is open. Rubrics seen before the first boundary open an implicit "P1"
// group. Titles that are only the subject heading are dropped.
func BuildPages(nodes []Node, subject string) []repertory.PageGroup {
	var pages []*buildPage
	var current *buildPage
	var open []*buildRubric

	openPage := func(label string) {
		current = &buildPage{label: label}
		pages = append(pages, current)
		open = open[:0]
	}

	for _, n := range nodes {
		switch n.Kind {
		case NodePageBreak:
			label, _ := textutil.PageLabel(n.Title)
			openPage(label)

		case NodeRubric:
			if subject != "" && strings.EqualFold(textutil.StripPageMarker(n.Title), subject) {
				continue
			}
			if current == nil {
				openPage("P1")
			}
			depth := n.Depth
			if depth > len(open) {
				depth = len(open)
			}
			open = open[:depth]
			r := &buildRubric{
				title:    n.Title,
				related:  n.Related,
				remedies: n.Remedies,
			}
			if n.Description != "" {
				r.desc = append(r.desc, n.Description)
			}
			if depth == 0 {
				current.rubrics = append(current.rubrics, r)
			} else {
				parent := open[depth-1]
				parent.children = append(parent.children, r)
			}
			open = append(open, r)

		case NodeFragment:
			if len(open) == 0 {
				continue // preamble with no attachment target
			}
			target := open[len(open)-1]
			if n.Description != "" {
				target.desc = append(target.desc, n.Description)
			}
			target.remedies = append(target.remedies, n.Remedies...)
		}
	}

	result := make([]repertory.PageGroup, 0, len(pages))
	for _, p := range pages {
		result = append(result, repertory.PageGroup{
			Page:    p.label,
			Rubrics: materialize(p.rubrics),
		})
	}
	return result
}

func materialize(rubrics []*buildRubric) []repertory.Rubric {
	out := make([]repertory.Rubric, 0, len(rubrics))
	for _, r := range rubrics {
		if r.remedies == nil {
			r.remedies = []repertory.Remedy{}
		}
		out = append(out, repertory.Rubric{
			Title:          r.title,
			Description:    strings.Join(r.desc, " "),
			RelatedRubrics: r.related,
			Remedies:       r.remedies,
			Subrubrics:     materialize(r.children),
		})
	}
	return out
}
