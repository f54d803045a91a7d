package banner

import (
	"strings"

	"github.com/hyperjump/crosstab/internal/workbook"
)

// ExtractIndices builds the synthetic indices record from the rows after the
// first "INDICES TABLE" marker. Only rows labelled with "Index" or exactly
// "SUBSAMPLE" are kept. It reports false when the marker is absent or no row
// qualifies.
func (h Heuristics) ExtractIndices(g workbook.Grid, demos []DemographicColumn) (QuestionRecord, bool) {
	h = h.withDefaults()
	marker := -1
	for r := 0; r < g.Rows(); r++ {
		if strings.Contains(cellText(g.Cell(r, 0)), IndicesMarker) {
			marker = r
			break
		}
	}
	if marker < 0 {
		return QuestionRecord{}, false
	}

	q := QuestionRecord{ID: IndicesID, Text: IndicesText, SourceRow: marker, Responses: make([]ResponseRow, 0)}
	start := marker + h.IndicesOffset
	end := min(start+h.IndicesWindow, g.Rows())
	for r := start; r < end; r++ {
		label := cellText(g.Cell(r, 0))
		if label == "" || containsAny(label, h.IndicesNoise) {
			continue
		}
		if !strings.Contains(label, indexWord) && label != subsampleLabel {
			continue
		}
		if values, ok := rowValues(g.Row(r), demos); ok {
			q.Responses = append(q.Responses, ResponseRow{Label: label, Values: values})
		}
	}
	if len(q.Responses) == 0 {
		return QuestionRecord{}, false
	}
	return q, true
}
