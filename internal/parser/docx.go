package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/aadjones/kent-repertory-etl/internal/remedy"
	"github.com/aadjones/kent-repertory-etl/internal/textutil"
)

// DOCXSource handles .docx transcriptions. Heading styles carry the rubric
// depth cue (Heading1 = top level); body paragraphs are classified like flat
// text lines. Run formatting does not survive the transcription reliably, so
// remedies from body text are grade 1.
type DOCXSource struct{}

func (s *DOCXSource) Nodes(r io.Reader, filename string) (*Stream, error) {
	// go-docx needs a ReadSeeker+size, so write to a temp file.
	tmp, err := os.CreateTemp("", "repertory-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, int64(size))
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	stream := &Stream{}

	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := textutil.CollapseWhitespace(docxParagraphText(para))
		if textutil.IsDecorative(text) {
			continue
		}

		if level := docxHeadingLevel(para); level > 0 {
			if _, ok := textutil.PageLabel(text); ok {
				stream.Nodes = append(stream.Nodes, Node{Kind: NodePageBreak, Title: text})
				continue
			}
			head, rest, _ := strings.Cut(text, ":")
			node := Node{
				Kind:    NodeRubric,
				Depth:   level - 1,
				Title:   textutil.CleanHeader(head),
				Related: textutil.RelatedRubrics(head),
			}
			if rest != "" {
				node.Description = textutil.CollapseWhitespace(rest)
				node.Remedies = remedy.ParseText(rest)
			}
			stream.Nodes = append(stream.Nodes, node)
			continue
		}

		// Body paragraphs attach to whichever rubric is open.
		if _, ok := textutil.PageLabel(text); ok {
			stream.Nodes = append(stream.Nodes, Node{Kind: NodePageBreak, Title: text})
			continue
		}
		stream.Nodes = append(stream.Nodes, Node{
			Kind:        NodeFragment,
			Description: textutil.RemoveParentheses(text),
		})
	}
	return stream, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := para.Properties.Style.Val
	for level := 1; level <= 6; level++ {
		if strings.EqualFold(style, fmt.Sprintf("Heading%d", level)) ||
			strings.EqualFold(style, fmt.Sprintf("heading %d", level)) {
			return level
		}
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var sb strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				sb.WriteString(t.Text)
			}
		}
	}
	return sb.String()
}
