package repertory

// Chapter is the root of a normalized repertory document.
type Chapter struct {
	Title    string      `json:"title"`
	PageInfo *PageInfo   `json:"page_info,omitempty"`
	Subject  string      `json:"subject"`
	Pages    []PageGroup `json:"pages"`

	// Warnings collects non-fatal conditions hit during parsing.
	// They are carried on the document rather than raised.
	Warnings []Warning `json:"warnings,omitempty"`
}

// PageInfo carries optional chapter-level page-range metadata.
type PageInfo struct {
	PagesCovered string `json:"pages_covered"`
}

// PageGroup holds the rubrics between one page-boundary marker and the next.
// The label keeps the source convention, e.g. "P1".
type PageGroup struct {
	Page    string   `json:"page"`
	Rubrics []Rubric `json:"rubrics"`
}

// Rubric is a recursive repertory entry. Within one page group, top-level
// rubric titles are unique after normalization; subrubrics are never merged
// across different parents.
type Rubric struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	RelatedRubrics []string `json:"related_rubrics,omitempty"`
	Remedies       []Remedy `json:"remedies"`
	Subrubrics     []Rubric `json:"subrubrics"`
}

// Remedy is one remedy mention. Grade is a formatting classification of the
// mention (3 = red/bold, 2 = blue/italic, 1 = plain), not a property of the
// remedy itself.
type Remedy struct {
	Name  string `json:"name"`
	Grade int    `json:"grade"`
}

// Warning records a recovered, non-fatal parse condition.
type Warning struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

const (
	// WarnMalformedMarkup covers unresolvable tag nesting or unclosed
	// formatting markers recovered as plain text.
	WarnMalformedMarkup = "malformed_markup"
	// WarnClampedDepth covers indentation cues that jumped more than one
	// level and were clamped onto the open path.
	WarnClampedDepth = "clamped_depth"
)
