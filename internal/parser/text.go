package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/aadjones/kent-repertory-etl/internal/repertory"
)

// TextSource handles plain-text transcriptions: one node per line, nesting
// inferred from leading indentation (one level per tab or per two spaces).
// No formatting markers survive in plain text, so remedies are grade 1.
type TextSource struct{}

func (s *TextSource) Nodes(r io.Reader, filename string) (*Stream, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	stream := &Stream{}
	prevDepth := 0

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		depth := textIndentDepth(line)
		node, ok := classifyText(line, depth)
		if !ok {
			continue
		}
		if depth > prevDepth+1 {
			if node.Kind == NodeFragment {
				return nil, &AmbiguousDepthError{Text: node.Description, Depth: depth, PrevDepth: prevDepth}
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
		stream.Nodes = append(stream.Nodes, node)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return stream, nil
}

// textIndentDepth counts leading tabs and space pairs.
func textIndentDepth(line string) int {
	tabs, spaces := 0, 0
	for _, r := range line {
		switch r {
		case '\t':
			tabs++
		case ' ', ' ':
			spaces++
		default:
			return tabs + spaces/2
		}
	}
	return tabs + spaces/2
}
