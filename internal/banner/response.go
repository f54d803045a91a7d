package banner

import (
	"math"
	"strconv"
	"strings"

	"github.com/hyperjump/crosstab/internal/workbook"
)

// BoundaryState records why a question block ended.
type BoundaryState int

const (
	// BoundaryScanning is the state while looking ahead.
	BoundaryScanning BoundaryState = iota
	// BoundaryMarker means the next question or the indices marker was found.
	BoundaryMarker
	// BoundaryCap means the lookahead limit was reached.
	BoundaryCap
	// BoundarySheetEnd means the grid ran out of rows.
	BoundarySheetEnd
)

func (s BoundaryState) String() string {
	switch s {
	case BoundaryMarker:
		return "marker"
	case BoundaryCap:
		return "cap"
	case BoundarySheetEnd:
		return "sheet-end"
	default:
		return "scanning"
	}
}

// Boundary is the half-open row range [Start, End) of a question's responses.
type Boundary struct {
	Start int
	End   int
	State BoundaryState
}

// QuestionBoundary scans forward from a question row for the row that ends
// its block: the next question, the indices marker, the lookahead cap, or
// the end of the sheet, whichever comes first.
func (h Heuristics) QuestionBoundary(g workbook.Grid, row int) Boundary {
	h = h.withDefaults()
	b := Boundary{Start: row + 1, State: BoundaryScanning}
	limit := row + h.QuestionLookahead
	for r := b.Start; b.State == BoundaryScanning; r++ {
		switch {
		case r >= g.Rows():
			b.End, b.State = g.Rows(), BoundarySheetEnd
		case r >= limit:
			b.End, b.State = limit, BoundaryCap
		case isSectionStart(g.Cell(r, 0)):
			b.End, b.State = r, BoundaryMarker
		}
	}
	return b
}

func isSectionStart(c workbook.Cell) bool {
	if _, ok := questionHeading(c); ok {
		return true
	}
	return strings.Contains(cellText(c), IndicesMarker)
}

// ExtractResponses fills q.Responses from the rows of its block. Rows with a
// blank label, a noise label, or no non-null value are skipped.
func (h Heuristics) ExtractResponses(g workbook.Grid, q QuestionRecord, demos []DemographicColumn) QuestionRecord {
	h = h.withDefaults()
	b := h.QuestionBoundary(g, q.SourceRow)
	q.Responses = make([]ResponseRow, 0)
	for r := b.Start; r < b.End; r++ {
		label := cellText(g.Cell(r, 0))
		if label == "" || containsAny(label, h.QuestionNoise) {
			continue
		}
		if values, ok := rowValues(g.Row(r), demos); ok {
			q.Responses = append(q.Responses, ResponseRow{Label: label, Values: values})
		}
	}
	return q
}

// rowValues reads one value per demographic column and reports whether any
// of them is non-null.
func rowValues(row []workbook.Cell, demos []DemographicColumn) ([]Value, bool) {
	values := make([]Value, 0, len(demos))
	found := false
	for _, d := range demos {
		v := Coerce(cellAt(row, d.ColumnIndex))
		if !v.IsNull() {
			found = true
		}
		values = append(values, v)
	}
	return values, found
}

// Coerce converts a cell to a Value. Blank cells are null; text containing
// "%" is kept verbatim; numbers and numeric text become numbers; anything
// else is kept as a string. NaN and infinities are never produced as numbers.
func Coerce(c workbook.Cell) Value {
	switch c.Kind {
	case workbook.Blank:
		return Null()
	case workbook.Number:
		if finite(c.Number) {
			return Number(c.Number)
		}
		return String(c.String())
	}
	if strings.Contains(c.Text, "%") {
		return String(c.Text)
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64); err == nil && finite(f) {
		return Number(f)
	}
	return String(c.Text)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
