package parser

import (
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/aadjones/kent-repertory-etl/internal/repertory"
	"github.com/aadjones/kent-repertory-etl/internal/textutil"
)

// MarkdownSource handles markdown transcriptions of repertory pages: heading
// level encodes rubric depth, body paragraphs are remedy fragments, and
// emphasis encodes the grade (**strong** = 3, *em* = 2).
type MarkdownSource struct{}

func (s *MarkdownSource) Nodes(r io.Reader, filename string) (*Stream, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	stream := &Stream{}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch block := n.(type) {
		case *ast.Heading:
			title := textutil.CollapseWhitespace(string(block.Text(src)))
			if textutil.IsDecorative(title) {
				continue
			}
			if _, ok := textutil.PageLabel(title); ok {
				stream.Nodes = append(stream.Nodes, Node{Kind: NodePageBreak, Title: title})
				continue
			}
			head, rest, _ := strings.Cut(title, ":")
			node := Node{
				Kind:    NodeRubric,
				Depth:   block.Level - 1,
				Title:   textutil.CleanHeader(head),
				Related: textutil.RelatedRubrics(head),
			}
			if rest != "" {
				node.Description = textutil.CollapseWhitespace(rest)
				node.Remedies = mdRemedies(block, src, true)
			}
			stream.Nodes = append(stream.Nodes, node)

		default:
			plain := textutil.CollapseWhitespace(string(n.Text(src)))
			if textutil.IsDecorative(plain) {
				continue
			}
			if _, ok := textutil.PageLabel(plain); ok {
				stream.Nodes = append(stream.Nodes, Node{Kind: NodePageBreak, Title: plain})
				continue
			}
			node := Node{
				Kind:        NodeFragment,
				Description: textutil.RemoveParentheses(plain),
			}
			// Emphasis marks a remedy list; unmarked paragraphs are detail text.
			if hasEmphasis(n) {
				node.Remedies = mdRemedies(n, src, false)
			}
			stream.Nodes = append(stream.Nodes, node)
		}
	}
	return stream, nil
}

// mdRemedies classifies comma-separated remedy mentions from a block's inline
// content, mapping emphasis level onto grades. With afterColon set, inline
// text up to the first colon (the rubric title) is skipped.
func mdRemedies(block ast.Node, src []byte, afterColon bool) []repertory.Remedy {
	acc := &mdSplitter{skipToColon: afterColon}
	var walk func(n ast.Node, grade int)
	walk = func(n ast.Node, grade int) {
		if em, ok := n.(*ast.Emphasis); ok {
			if em.Level >= 2 {
				grade = 3
			} else if grade < 2 {
				grade = 2
			}
		}
		if t, ok := n.(*ast.Text); ok {
			acc.text(string(t.Value(src)), grade)
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c, grade)
		}
	}
	walk(block, 1)
	acc.flush()
	return acc.remedies
}

// mdSplitter splits text runs on commas, keeping the strongest grade seen
// within each mention.
type mdSplitter struct {
	current     strings.Builder
	grade       int
	skipToColon bool
	remedies    []repertory.Remedy
}

func (p *mdSplitter) text(s string, grade int) {
	if p.skipToColon {
		i := strings.IndexByte(s, ':')
		if i < 0 {
			return
		}
		p.skipToColon = false
		s = s[i+1:]
	}
	for {
		i := strings.IndexByte(s, ',')
		if i < 0 {
			break
		}
		p.append(s[:i], grade)
		p.flush()
		s = s[i+1:]
	}
	p.append(s, grade)
}

func (p *mdSplitter) append(s string, grade int) {
	if strings.TrimSpace(s) == "" {
		return
	}
	p.current.WriteString(s)
	if grade > p.grade {
		p.grade = grade
	}
}

func (p *mdSplitter) flush() {
	name := textutil.CollapseWhitespace(p.current.String())
	if name != "" {
		if p.grade == 0 {
			p.grade = 1
		}
		p.remedies = append(p.remedies, repertory.Remedy{Name: name, Grade: p.grade})
	}
	p.current.Reset()
	p.grade = 0
}

func hasEmphasis(n ast.Node) bool {
	if _, ok := n.(*ast.Emphasis); ok {
		return true
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if hasEmphasis(c) {
			return true
		}
	}
	return false
}
