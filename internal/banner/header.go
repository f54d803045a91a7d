package banner

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/crosstab/internal/workbook"
)

// LocateDemographics finds the category row and maps each segment column to
// its demographic. The segment labels are on the row directly below the
// category row. It returns the category row index, or -1 when no row in the
// header region names a demographic keyword.
func (h Heuristics) LocateDemographics(g workbook.Grid) ([]DemographicColumn, int) {
	h = h.withDefaults()
	limit := min(h.HeaderScanRows, g.Rows())
	for r := 0; r < limit; r++ {
		if containsAny(rowText(g.Row(r)), h.DemographicKeywords) {
			return h.walkColumns(g.Row(r), g.Row(r+1)), r
		}
	}
	return []DemographicColumn{}, -1
}

// walkColumns folds left to right over the category and label rows. The
// current category is sticky until the next qualifying category cell.
func (h Heuristics) walkColumns(categories, labels []workbook.Cell) []DemographicColumn {
	cols := make([]DemographicColumn, 0, len(labels))
	current := ""
	width := max(len(categories), len(labels))
	for c := 0; c < width; c++ {
		var col DemographicColumn
		var ok bool
		current, col, ok = h.stepColumn(current, c, cellAt(categories, c), cellAt(labels, c))
		if ok {
			cols = append(cols, col)
		}
	}
	return cols
}

// stepColumn advances the column walk by one column. Column 0 holds row
// labels and never yields a segment.
func (h Heuristics) stepColumn(current string, c int, category, label workbook.Cell) (string, DemographicColumn, bool) {
	if name := cellText(category); name != "" && utf8.RuneCountInString(name) >= minCategoryRunes && name != TotalLabel {
		current = name
	}
	if c == 0 || label.IsBlank() {
		return current, DemographicColumn{}, false
	}
	text := h.segmentLabel(label.String())
	cat := current
	switch {
	case text == TotalLabel:
		cat = TotalLabel
	case cat == "":
		cat = UnknownCategory
	}
	return current, DemographicColumn{Category: cat, Label: text, ColumnIndex: c}, true
}

// segmentLabel joins the lines of a label cell with spaces, stopping at the
// first separator line.
func (h Heuristics) segmentLabel(raw string) string {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), "\r\n", "\n")
	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if hasAnyPrefix(line, h.SeparatorPrefixes) {
			break
		}
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

// LocateColumnLabels finds the row whose second cell contains "(A)" and
// returns the letter inside the first parenthesized capital of each cell from
// column 1 on, with the row index. It returns -1 when no such row exists.
func (h Heuristics) LocateColumnLabels(g workbook.Grid) ([]string, int) {
	h = h.withDefaults()
	limit := min(h.HeaderScanRows, g.Rows())
	for r := 0; r < limit; r++ {
		if !strings.Contains(g.Cell(r, 1).String(), firstLabelToken) {
			continue
		}
		row := g.Row(r)
		labels := make([]string, 0, len(row))
		for c := 1; c < len(row); c++ {
			if m := columnLetter.FindStringSubmatch(cellText(row[c])); m != nil {
				labels = append(labels, m[1])
			}
		}
		return labels, r
	}
	return []string{}, -1
}

func cellAt(row []workbook.Cell, c int) workbook.Cell {
	if c < len(row) {
		return row[c]
	}
	return workbook.Cell{}
}
