// Package store persists assembled chapter documents as JSON files.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aadjones/kent-repertory-etl/internal/repertory"
	"github.com/aadjones/kent-repertory-etl/internal/textutil"
)

// Store writes chapter documents under a single output directory.
type Store struct {
	dir string
}

// New creates the output directory if needed and returns a store rooted
// there.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Filename computes the output file name for a chapter,
// e.g. "chapter_kent_repertory_kent0000.json".
func Filename(ch *repertory.Chapter) string {
	name := textutil.CleanFilename(ch.Title)
	if name == "" {
		name = textutil.CleanFilename(ch.Subject)
	}
	if name == "" {
		name = "untitled"
	}
	return "chapter_" + name + ".json"
}

// Save serializes the chapter with indentation and writes it atomically,
// returning the path written. An existing file for the same chapter is
// replaced.
func (s *Store) Save(ch *repertory.Chapter) (string, error) {
	data, err := json.MarshalIndent(ch, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal chapter: %w", err)
	}
	data = append(data, '\n')

	path := filepath.Join(s.dir, Filename(ch))
	tmp, err := os.CreateTemp(s.dir, ".chapter-*.json")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write chapter: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename chapter file: %w", err)
	}
	return path, nil
}

// Load reads a chapter document back from disk.
func (s *Store) Load(name string) (*repertory.Chapter, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("read chapter: %w", err)
	}
	var ch repertory.Chapter
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("decode chapter: %w", err)
	}
	return &ch, nil
}
