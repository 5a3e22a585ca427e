// Package parser walks the supported source shapes of a digitized repertory
// chapter and produces one depth-annotated node stream, which BuildPages then
// assembles into the page -> rubric -> subrubric tree. Everything downstream
// of the node stream is shape-agnostic.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Source converts raw chapter markup into the depth-annotated node stream.
type Source interface {
	Nodes(r io.Reader, filename string) (*Stream, error)
}

// SupportedExtensions lists the transcription formats this ETL can handle.
var SupportedExtensions = map[string]bool{
	".html": true,
	".htm":  true,
	".md":   true,
	".txt":  true,
	".docx": true,
	".pdf":  true,
}

// ForFile returns the appropriate source walker for a filename.
func ForFile(filename string) (Source, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".html", ".htm":
		return &HTMLSource{}, nil
	case ".md", ".markdown":
		return &MarkdownSource{}, nil
	case ".txt":
		return &TextSource{}, nil
	case ".docx":
		return &DOCXSource{}, nil
	case ".pdf":
		return &PDFSource{FallbackPdftotext: true}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext] || ext == ".markdown"
}
