// Package assemble turns a parsed node stream into a complete chapter
// document: pages built, duplicates merged, subject and metadata resolved.
package assemble

import (
	"errors"
	"fmt"

	"github.com/aadjones/kent-repertory-etl/internal/dedup"
	"github.com/aadjones/kent-repertory-etl/internal/parser"
	"github.com/aadjones/kent-repertory-etl/internal/repertory"
	"github.com/aadjones/kent-repertory-etl/internal/textutil"
)

var (
	// ErrMissingSubject is returned when no subject was supplied and none
	// could be recovered from the document's page-break headers.
	ErrMissingSubject = errors.New("assemble: cannot determine chapter subject")

	// ErrEmptyDocument is returned when parsing produced no usable nodes.
	ErrEmptyDocument = errors.New("assemble: document contains no rubrics or page breaks")
)

// Meta carries document-level fields that do not come out of the node
// stream itself.
type Meta struct {
	// Title overrides the title found in the document, if non-empty.
	Title string
	// Subject is the chapter subject (e.g. "MIND"). If empty it is
	// recovered from the first page-break header.
	Subject string
	// PagesCovered, when non-empty, is recorded verbatim as page_info.
	PagesCovered string
}

// Chapter assembles the final document from a parsed stream.
func Chapter(stream *parser.Stream, meta Meta) (*repertory.Chapter, error) {
	if stream == nil || len(stream.Nodes) == 0 {
		return nil, ErrEmptyDocument
	}

	subject := meta.Subject
	if subject == "" {
		subject = subjectFromNodes(stream.Nodes)
	}
	if subject == "" {
		return nil, fmt.Errorf("%w: no usable page-break header found", ErrMissingSubject)
	}

	title := meta.Title
	if title == "" {
		title = stream.Title
	}

	pages := dedup.Pages(parser.BuildPages(stream.Nodes, subject))
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no page groups produced", ErrEmptyDocument)
	}

	ch := &repertory.Chapter{
		Title:    title,
		Subject:  subject,
		Pages:    pages,
		Warnings: stream.Warnings,
	}
	if meta.PagesCovered != "" {
		ch.PageInfo = &repertory.PageInfo{PagesCovered: meta.PagesCovered}
	}
	return ch, nil
}

// subjectFromNodes scans page-break titles for a subject word, skipping the
// author name that some headers lead with.
func subjectFromNodes(nodes []parser.Node) string {
	for _, n := range nodes {
		if n.Kind != parser.NodePageBreak {
			continue
		}
		if s, ok := textutil.Subject(n.Title); ok {
			return s
		}
	}
	return ""
}
