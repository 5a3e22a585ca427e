package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/aadjones/kent-repertory-etl/internal/remedy"
	"github.com/aadjones/kent-repertory-etl/internal/repertory"
	"github.com/aadjones/kent-repertory-etl/internal/textutil"
)

// HTMLSource handles digitized repertory pages. Two encodings of the same
// logical hierarchy exist in the corpus: nested <dir> containers (depth is
// the container nesting) and a flat <p> sequence (depth is inferred from a
// leading indentation cue). The shape is detected from the document itself.
type HTMLSource struct{}

func (s *HTMLSource) Nodes(r io.Reader, filename string) (*Stream, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	stream := &Stream{Title: findTitle(doc)}
	// Unclosed markers are repaired by the HTML parser; record that the
	// source needed repair before the evidence is gone.
	if remedy.UnbalancedMarkers(string(raw)) {
		stream.warnf(repertory.WarnMalformedMarkup, "unbalanced formatting markers in %s", filename)
	}

	if dir := findElement(doc, "dir"); dir != nil {
		walkNested(dir, 0, stream)
		return stream, nil
	}

	body := findElement(doc, "body")
	if body == nil {
		body = doc
	}
	if err := walkFlat(body, stream); err != nil {
		return nil, err
	}
	return stream, nil
}

// walkNested recursively walks a <dir> container; nesting depth is the
// hierarchy depth directly.
func walkNested(dir *html.Node, depth int, stream *Stream) {
	for c := dir.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "p":
			if n, ok := classifyParagraph(c, depth); ok {
				if n.Malformed {
					stream.warnf(repertory.WarnMalformedMarkup, "unclosed formatting marker in %q", n.Title)
				}
				stream.Nodes = append(stream.Nodes, n)
			}
		case "dir":
			walkNested(c, depth+1, stream)
		}
	}
}

// walkFlat walks a sibling <p> sequence. Depth comes from the paragraph's
// leading indentation (tabs or non-breaking-space pairs) and may grow by at
// most one level per node; a deeper jump is clamped for recognized rubric and
// boundary nodes and fatal for anything else.
func walkFlat(root *html.Node, stream *Stream) error {
	prevDepth := 0
	var visit func(*html.Node) error
	visit = func(n *html.Node) error {
		if n.Type == html.ElementNode && n.Data == "p" {
			depth := indentDepth(textContent(n))
			node, ok := classifyParagraph(n, depth)
			if !ok {
				return nil
			}
			if depth > prevDepth+1 {
				if node.Kind == NodeFragment {
					return &AmbiguousDepthError{Text: node.Description, Depth: depth, PrevDepth: prevDepth}
				}
				stream.warnf(repertory.WarnClampedDepth, "depth %d clamped to %d for %q", depth, prevDepth+1, node.Title)
				depth = prevDepth + 1
				node.Depth = depth
			}
			if node.Kind == NodePageBreak {
				prevDepth = 0
			} else {
				prevDepth = depth
			}
			if node.Malformed {
				stream.warnf(repertory.WarnMalformedMarkup, "unclosed formatting marker in %q", node.Title)
			}
			stream.Nodes = append(stream.Nodes, node)
			return nil
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(root)
}

// classifyParagraph classifies one <p> element, in priority order: decorative
// (dropped), page-boundary marker, rubric header (a colon, a <b> descendant,
// or a cross-reference parenthetical), or fragment. Returns ok=false when the
// paragraph is dropped.
func classifyParagraph(p *html.Node, depth int) (Node, bool) {
	text := textutil.CollapseWhitespace(textContent(p))
	if textutil.IsDecorative(text) {
		return Node{}, false
	}
	if _, ok := textutil.PageLabel(text); ok {
		return Node{Kind: NodePageBreak, Title: text}, true
	}

	inner := innerHTML(p)
	related := textutil.RelatedRubrics(text)

	if strings.Contains(text, ":") || hasElement(p, "b") || len(related) > 0 {
		headRaw, remedyRaw, _ := strings.Cut(inner, ":")
		title := textutil.CleanHeader(fragmentText(headRaw))
		if textutil.IsDecorative(title) {
			return Node{}, false
		}
		remedies, malformed := remedy.ParseList(remedyRaw)
		return Node{
			Kind:        NodeRubric,
			Depth:       depth,
			Title:       title,
			Related:     related,
			Description: textutil.CollapseWhitespace(fragmentText(remedyRaw)),
			Remedies:    remedies,
			Malformed:   malformed,
		}, true
	}

	node := Node{
		Kind:        NodeFragment,
		Depth:       depth,
		Description: textutil.RemoveParentheses(text),
	}
	if hasElement(p, "font") || hasElement(p, "i") || hasElement(p, "em") || hasElement(p, "strong") {
		node.Remedies, node.Malformed = remedy.ParseList(inner)
	}
	return node, true
}

// indentDepth infers the flat-shape nesting level from leading indentation:
// one level per tab or per pair of non-breaking spaces.
func indentDepth(text string) int {
	depth := 0
	nbsp := 0
	for _, r := range text {
		switch r {
		case '\t':
			depth++
		case ' ':
			nbsp++
		case ' ':
			// plain spaces inside the indent run are ignored
		default:
			return depth + nbsp/2
		}
	}
	return depth + nbsp/2
}

// innerHTML renders the children of n back to markup, so rubric headers can
// be split on the colon without losing formatting tags.
func innerHTML(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&sb, c)
	}
	return sb.String()
}

// fragmentText extracts the plain text of an HTML fragment string.
func fragmentText(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return textContent(doc)
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return sb.String()
}

func findTitle(doc *html.Node) string {
	if t := findElement(doc, "title"); t != nil {
		return textutil.CollapseWhitespace(textContent(t))
	}
	return ""
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

func hasElement(n *html.Node, name string) bool {
	if n.Type == html.ElementNode && n.Data == name {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasElement(c, name) {
			return true
		}
	}
	return false
}
