// Package dedup merges duplicate rubrics within a page group. Upstream
// formatting is inconsistent enough that the same rubric title routinely
// appears more than once on a page; the merge is what makes the output tree
// deterministic.
package dedup

import (
	"strings"

	"github.com/aadjones/kent-repertory-etl/internal/repertory"
	"github.com/aadjones/kent-repertory-etl/internal/textutil"
)

// Pages deduplicates every page group independently and returns a new slice;
// the input is not mutated.
func Pages(pages []repertory.PageGroup) []repertory.PageGroup {
	out := make([]repertory.PageGroup, 0, len(pages))
	for _, p := range pages {
		out = append(out, repertory.PageGroup{
			Page:    p.Page,
			Rubrics: Rubrics(p.Rubrics),
		})
	}
	return out
}

// Rubrics merges sibling rubrics with identical normalized titles, keeping
// the first-seen casing and order. Descriptions are joined with a single
// space (empty ones skipped), remedies are unioned by case-normalized name
// plus grade, related rubrics are unioned by name, and the concatenated
// subrubrics are deduplicated recursively. Rubrics under different parents
// are never merged.
func Rubrics(rubrics []repertory.Rubric) []repertory.Rubric {
	merged := make(map[string]*repertory.Rubric)
	var order []string

	for _, rub := range rubrics {
		key := textutil.NormalizeTitle(rub.Title)
		if existing, ok := merged[key]; ok {
			existing.Description = joinDescriptions(existing.Description, rub.Description)
			existing.Remedies = append(existing.Remedies, rub.Remedies...)
			existing.RelatedRubrics = append(existing.RelatedRubrics, rub.RelatedRubrics...)
			existing.Subrubrics = append(existing.Subrubrics, rub.Subrubrics...)
			continue
		}
		clone := rub
		merged[key] = &clone
		order = append(order, key)
	}

	out := make([]repertory.Rubric, 0, len(order))
	for _, key := range order {
		rub := merged[key]
		rub.Remedies = uniqueRemedies(rub.Remedies)
		rub.RelatedRubrics = uniqueStrings(rub.RelatedRubrics)
		rub.Subrubrics = Rubrics(rub.Subrubrics)
		out = append(out, *rub)
	}
	return out
}

func joinDescriptions(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

// uniqueRemedies drops duplicate mentions, keeping first-occurrence order.
// The key is (case-normalized name, grade): the same name at a different
// grade stays a separate record.
func uniqueRemedies(remedies []repertory.Remedy) []repertory.Remedy {
	type key struct {
		name  string
		grade int
	}
	seen := make(map[key]bool, len(remedies))
	out := make([]repertory.Remedy, 0, len(remedies))
	for _, r := range remedies {
		k := key{strings.ToLower(r.Name), r.Grade}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

func uniqueStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := values[:0:0]
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
