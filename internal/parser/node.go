package parser

import (
	"fmt"
	"strings"

	"github.com/aadjones/kent-repertory-etl/internal/remedy"
	"github.com/aadjones/kent-repertory-etl/internal/repertory"
	"github.com/aadjones/kent-repertory-etl/internal/textutil"
)

// NodeKind is the closed set of node classifications. Decorative content is
// dropped by the walkers and never reaches the stream.
type NodeKind int

const (
	// NodePageBreak marks a page boundary ("MIND p. 2"). It is never
	// materialized as a rubric.
	NodePageBreak NodeKind = iota
	// NodeRubric opens a rubric at Depth.
	NodeRubric
	// NodeFragment is text and/or remedies belonging to the most recently
	// opened rubric.
	NodeFragment
)

// Node is one entry of the depth-annotated stream every source shape
// produces. The tree builder downstream is shape-agnostic.
type Node struct {
	Kind  NodeKind
	Depth int

	// Title is the cleaned rubric title, or the raw marker text for page
	// breaks.
	Title   string
	Related []string

	// Description is rubric detail text (for rubrics, the text right of the
	// colon; for fragments, the fragment text with parentheticals stripped).
	Description string
	Remedies    []repertory.Remedy

	// Malformed flags recovered markup; surfaced as a warning.
	Malformed bool
}

// Stream is the walker output: the node sequence in document order plus
// document-level metadata picked up along the way.
type Stream struct {
	Title    string // document title element, when the shape has one
	Nodes    []Node
	Warnings []repertory.Warning
}

func (s *Stream) warnf(kind, format string, args ...any) {
	s.Warnings = append(s.Warnings, repertory.Warning{Kind: kind, Text: fmt.Sprintf(format, args...)})
}

// AmbiguousDepthError reports a flat-shape node whose indentation cue is
// contradictory and which is not a recognized page boundary or rubric, so it
// cannot be placed in the tree. It fails the parse of that document only.
type AmbiguousDepthError struct {
	Text      string
	Depth     int
	PrevDepth int
}

func (e *AmbiguousDepthError) Error() string {
	return fmt.Sprintf("ambiguous depth %d (previous %d) for node %q", e.Depth, e.PrevDepth, e.Text)
}

// classifyText classifies one plain-text line or paragraph. It is used by the
// text-based shapes (plain text, pdf extraction, docx body paragraphs), where
// remedies carry no inline markup. Returns ok=false for decorative content.
func classifyText(text string, depth int) (Node, bool) {
	text = textutil.CollapseWhitespace(text)
	if textutil.IsDecorative(text) {
		return Node{}, false
	}
	if _, ok := textutil.PageLabel(text); ok {
		return Node{Kind: NodePageBreak, Title: text}, true
	}
	if head, rest, found := strings.Cut(text, ":"); found {
		related := textutil.RelatedRubrics(head)
		title := textutil.CleanHeader(head)
		if textutil.IsDecorative(title) {
			return Node{}, false
		}
		return Node{
			Kind:        NodeRubric,
			Depth:       depth,
			Title:       title,
			Related:     related,
			Description: textutil.CollapseWhitespace(rest),
			Remedies:    remedy.ParseText(rest),
		}, true
	}
	return Node{
		Kind:        NodeFragment,
		Depth:       depth,
		Description: textutil.RemoveParentheses(text),
	}, true
}
