package banner

import (
	"regexp"
	"strings"

	"github.com/hyperjump/crosstab/internal/workbook"
)

const (
	// TotalLabel marks the total column and is never a category name.
	TotalLabel = "TOTAL"
	// UnknownCategory is used for segments seen before any category cell.
	UnknownCategory = "Unknown"

	// IndicesMarker introduces the composite metrics block.
	IndicesMarker = "INDICES TABLE"
	// IndicesID is the id of the synthetic indices record.
	IndicesID = "INDICES"
	// IndicesText is the text of the synthetic indices record.
	IndicesText = "INDICES TABLE - Composite Metrics"

	subsampleLabel   = "SUBSAMPLE"
	indexWord        = "Index"
	firstLabelToken  = "(A)"
	totalOnlyName    = "Total Only"
	displaySeparator = " / "
	moreSuffix       = " + more"
	maxDisplayParts  = 3
	minCategoryRunes = 3
)

var (
	questionStart = regexp.MustCompile(`^Q\d+\.`)
	questionID    = regexp.MustCompile(`^(Q\d+)`)
	columnLetter  = regexp.MustCompile(`\(([A-Z])\)`)
)

// Heuristics holds the tunable recognition rules.
type Heuristics struct {
	// DemographicKeywords identify the category row (case-sensitive substrings).
	DemographicKeywords []string
	// HeaderScanRows bounds the search for the category and label rows.
	HeaderScanRows int
	// SeparatorPrefixes end a multi-line segment label.
	SeparatorPrefixes []string
	// QuestionNoise drops response rows whose label contains any entry.
	QuestionNoise []string
	// IndicesNoise drops indices rows whose label contains any entry.
	IndicesNoise []string
	// QuestionLookahead caps how far a question block extends.
	QuestionLookahead int
	// IndicesOffset is the distance from the marker to the first indices row.
	IndicesOffset int
	// IndicesWindow is the number of rows scanned for indices.
	IndicesWindow int
}

// DefaultHeuristics returns the rules used for standard banner reports.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		DemographicKeywords: []string{
			"Region", "Age", "Gender", "Education", "Attendance", "Frequency", "Freq",
			"Volunteer", "Tenure", "Ministry", "happiness", "Relationships", "purpose", "Understand",
		},
		HeaderScanRows:    20,
		SeparatorPrefixes: []string{"---", "==="},
		QuestionNoise:     []string{"====", "----", "Comparison Groups", "Paired", "Uppercase", "SUBSAMPLE"},
		// "Total" drops the base and "Total ... Index" summary rows of the indices block.
		IndicesNoise:      []string{"====", "----", "Comparison Groups", "Paired", "Uppercase", "Total"},
		QuestionLookahead: 150,
		IndicesOffset:     5,
		IndicesWindow:     50,
	}
}

// withDefaults fills zero fields from DefaultHeuristics.
func (h Heuristics) withDefaults() Heuristics {
	d := DefaultHeuristics()
	if h.DemographicKeywords == nil {
		h.DemographicKeywords = d.DemographicKeywords
	}
	if h.HeaderScanRows <= 0 {
		h.HeaderScanRows = d.HeaderScanRows
	}
	if h.SeparatorPrefixes == nil {
		h.SeparatorPrefixes = d.SeparatorPrefixes
	}
	if h.QuestionNoise == nil {
		h.QuestionNoise = d.QuestionNoise
	}
	if h.IndicesNoise == nil {
		h.IndicesNoise = d.IndicesNoise
	}
	if h.QuestionLookahead <= 0 {
		h.QuestionLookahead = d.QuestionLookahead
	}
	if h.IndicesOffset <= 0 {
		h.IndicesOffset = d.IndicesOffset
	}
	if h.IndicesWindow <= 0 {
		h.IndicesWindow = d.IndicesWindow
	}
	return h
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// cellText returns the trimmed text of c, or "" for blanks.
func cellText(c workbook.Cell) string {
	if c.IsBlank() {
		return ""
	}
	return strings.TrimSpace(c.String())
}

// rowText joins the non-blank cells of row with single spaces.
func rowText(row []workbook.Cell) string {
	parts := make([]string, 0, len(row))
	for _, c := range row {
		if !c.IsBlank() {
			parts = append(parts, c.String())
		}
	}
	return strings.Join(parts, " ")
}
