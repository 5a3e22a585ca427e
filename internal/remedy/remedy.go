// Package remedy parses inline fragments that list one or more remedies with
// embedded formatting markers into structured remedy records.
//
// Grade encodes the source formatting of a mention: red/bold text is grade 3,
// blue/italic text is grade 2, and an unwrapped mention is grade 1.
package remedy

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/aadjones/kent-repertory-etl/internal/repertory"
	"github.com/aadjones/kent-repertory-etl/internal/textutil"
)

// marks are the formatting flags active for a run of text. Font colors take
// precedence over tag styling, and red over blue, matching the source
// material's conventions.
type marks struct {
	redFont  bool
	blueFont bool
	bold     bool
	italic   bool
}

func (m marks) grade() int {
	switch {
	case m.redFont:
		return 3
	case m.blueFont:
		return 2
	case m.bold:
		return 3
	case m.italic:
		return 2
	default:
		return 1
	}
}

// ParseList parses an inline HTML fragment containing comma-separated remedy
// mentions. Malformed or unclosed markers never drop content: the fragment is
// normalized by the HTML parser and unresolved styling falls back to grade 1.
// The second result reports whether the markup looked malformed.
func ParseList(fragment string) ([]repertory.Remedy, bool) {
	malformed := UnbalancedMarkers(fragment)

	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		// Tolerant fallback: treat the whole fragment as plain text.
		return ParseText(fragment), true
	}
	remedies := FromNodes(nodes)
	if malformed {
		// Marker boundaries cannot be trusted; keep the content but treat
		// every mention as unwrapped.
		for i := range remedies {
			remedies[i].Grade = 1
		}
	}
	return remedies, malformed
}

// FromNodes classifies remedy mentions from already-parsed fragment nodes.
func FromNodes(nodes []*html.Node) []repertory.Remedy {
	p := &splitter{}
	for _, n := range nodes {
		p.walk(n, marks{})
	}
	p.flush()
	return p.remedies
}

// ParseText classifies a plain-text fragment with no formatting markers; every
// mention is grade 1.
func ParseText(fragment string) []repertory.Remedy {
	var remedies []repertory.Remedy
	for _, part := range strings.Split(fragment, ",") {
		name := textutil.CollapseWhitespace(part)
		if name == "" {
			continue
		}
		remedies = append(remedies, repertory.Remedy{Name: name, Grade: 1})
	}
	return remedies
}

// splitter accumulates text runs, splitting mentions on commas and keeping
// the strongest formatting seen within each mention.
type splitter struct {
	current  strings.Builder
	active   marks
	remedies []repertory.Remedy
}

func (p *splitter) walk(n *html.Node, m marks) {
	if n.Type == html.TextNode {
		p.text(n.Data, m)
		return
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "b", "strong":
			m.bold = true
		case "i", "em":
			m.italic = true
		case "font":
			switch strings.ToLower(attr(n, "color")) {
			case "#ff0000":
				m.redFont = true
			case "#0000ff":
				m.blueFont = true
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c, m)
	}
}

func (p *splitter) text(s string, m marks) {
	for {
		i := strings.IndexByte(s, ',')
		if i < 0 {
			break
		}
		p.append(s[:i], m)
		p.flush()
		s = s[i+1:]
	}
	p.append(s, m)
}

func (p *splitter) append(s string, m marks) {
	if strings.TrimSpace(s) == "" {
		return
	}
	p.current.WriteString(s)
	p.active.redFont = p.active.redFont || m.redFont
	p.active.blueFont = p.active.blueFont || m.blueFont
	p.active.bold = p.active.bold || m.bold
	p.active.italic = p.active.italic || m.italic
}

func (p *splitter) flush() {
	name := textutil.CollapseWhitespace(p.current.String())
	if name != "" {
		p.remedies = append(p.remedies, repertory.Remedy{Name: name, Grade: p.active.grade()})
	}
	p.current.Reset()
	p.active = marks{}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// UnbalancedMarkers is a cheap check for unclosed formatting tags, used to
// surface a warning while still recovering the content. It must run on raw
// markup, before the HTML parser repairs the nesting. Only excess opening
// tags count: a stray closing tag is the normal leftover of splitting a
// rubric header on its colon and resolves harmlessly.
func UnbalancedMarkers(fragment string) bool {
	lower := strings.ToLower(fragment)
	for _, tag := range []string{"b", "i", "strong", "em", "font"} {
		open := strings.Count(lower, "<"+tag+">") + strings.Count(lower, "<"+tag+" ")
		if open > strings.Count(lower, "</"+tag+">") {
			return true
		}
	}
	return false
}
