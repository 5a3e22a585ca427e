// Package textutil classifies and cleans the text fragments that make up a
// digitized repertory page: decorative rule lines, page-boundary markers,
// parentheticals, and title normalization.
package textutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// decorativeGlyphs are the rule/arrow characters that carry no content.
const decorativeGlyphs = "-—–=~·.*<>→←"

var (
	innerParenRe = regexp.MustCompile(`\([^()]*\)`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	pageBreakRe  = regexp.MustCompile(`(?i)^(.*?)\s*\bp\.?\s*(\d+)\s*$`)
	pageMarkRe   = regexp.MustCompile(`(?i)\s*\bp\.?\s*\d+`)
	nonFileRe    = regexp.MustCompile(`[^a-z0-9_]`)
)

// IsDecorative reports whether text, after trimming, consists only of rule
// and arrow glyphs (e.g. "----------", "→→→", "-->"). Empty and
// whitespace-only strings count as decorative.
func IsDecorative(text string) bool {
	stripped := strings.TrimSpace(text)
	if stripped == "" {
		return true
	}
	for _, r := range stripped {
		if r == ' ' || r == '\t' {
			continue
		}
		if !strings.ContainsRune(decorativeGlyphs, r) {
			return false
		}
	}
	return true
}

// RemoveParentheses strips all substrings enclosed in matching parentheses,
// including nested ones, and collapses the surrounding whitespace. Unbalanced
// parentheses are left as literal text.
func RemoveParentheses(text string) string {
	for {
		next := innerParenRe.ReplaceAllString(text, " ")
		if next == text {
			break
		}
		text = next
	}
	return CollapseWhitespace(text)
}

// CollapseWhitespace trims and squeezes internal runs of whitespace to a
// single space.
func CollapseWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// NormalizeTitle produces the canonical form used for page-boundary detection
// and duplicate-rubric keys: case-folded, whitespace-collapsed, trimmed. It
// is idempotent.
func NormalizeTitle(text string) string {
	return strings.ToLower(CollapseWhitespace(text))
}

// CleanHeader strips parentheticals from a rubric header and trims it.
func CleanHeader(header string) string {
	return RemoveParentheses(header)
}

// RelatedRubrics extracts cross-referenced rubric names from the first
// parenthetical of a header, e.g. "ABANDONED (See Forsaken)" -> ["Forsaken"].
// A leading "see" is dropped; names are comma-separated.
func RelatedRubrics(header string) []string {
	open := strings.IndexByte(header, '(')
	if open < 0 {
		return nil
	}
	end := strings.IndexByte(header[open:], ')')
	if end < 0 {
		return nil
	}
	inner := strings.TrimSpace(header[open+1 : open+end])
	if len(inner) >= 3 && strings.EqualFold(inner[:3], "see") {
		inner = strings.TrimSpace(inner[3:])
	}
	var related []string
	for _, part := range strings.Split(inner, ",") {
		if part = strings.TrimSpace(part); part != "" {
			related = append(related, part)
		}
	}
	return related
}

// PageLabel extracts the page label from a boundary marker, e.g.
// "MIND p. 2" -> "P2". The second result is false when title is not a marker.
func PageLabel(title string) (string, bool) {
	m := pageBreakRe.FindStringSubmatch(strings.TrimSpace(title))
	if m == nil {
		return "", false
	}
	return "P" + m[2], true
}

// Subject extracts the subject portion of a boundary marker, uppercased.
// Matches of the publication name "KENT" are ignored.
func Subject(title string) (string, bool) {
	m := pageBreakRe.FindStringSubmatch(strings.TrimSpace(title))
	if m == nil {
		return "", false
	}
	subject := strings.ToUpper(CollapseWhitespace(m[1]))
	if subject == "" || subject == "KENT" {
		return "", false
	}
	return subject, true
}

// StripPageMarker removes a trailing page marker from a title, so
// "MIND p. 1" normalizes to "MIND".
func StripPageMarker(title string) string {
	return strings.TrimSpace(pageMarkRe.ReplaceAllString(title, ""))
}

// CleanFilename lowercases text and reduces it to [a-z0-9_] for use as a
// file name.
func CleanFilename(text string) string {
	text = strings.ToLower(text)
	text = whitespaceRe.ReplaceAllString(text, "_")
	return nonFileRe.ReplaceAllString(text, "")
}

// PageRange computes the printed-page span covered by a Kent source file
// identifier; each file holds five pages, so "0000" -> "P1-P5".
func PageRange(identifier string) (string, error) {
	n, err := strconv.Atoi(identifier)
	if err != nil {
		return "", fmt.Errorf("invalid identifier %q: %w", identifier, err)
	}
	return fmt.Sprintf("P%d-P%d", n+1, n+5), nil
}
