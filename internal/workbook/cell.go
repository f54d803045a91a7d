package workbook

import "strconv"

// CellKind classifies a grid cell.
type CellKind int

const (
	// Blank is an empty cell or a cell outside the used range.
	Blank CellKind = iota
	// Number is a numeric cell.
	Number
	// Text is a string cell.
	Text
)

// Cell is one grid cell. Only the field matching Kind is meaningful.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

// TextCell returns a text cell.
func TextCell(s string) Cell {
	return Cell{Kind: Text, Text: s}
}

// NumberCell returns a numeric cell.
func NumberCell(n float64) Cell {
	return Cell{Kind: Number, Number: n}
}

// IsBlank reports whether the cell holds no value.
func (c Cell) IsBlank() bool {
	return c.Kind == Blank
}

// IsText reports whether the cell holds a string value.
func (c Cell) IsText() bool {
	return c.Kind == Text
}

// String renders the cell the way it would print: text verbatim, numbers in
// their shortest decimal form, blanks as "".
func (c Cell) String() string {
	switch c.Kind {
	case Text:
		return c.Text
	case Number:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// Grid is a sheet loaded as rows of cells. Rows may be ragged; cells past the
// end of a row are blank.
type Grid [][]Cell

// Rows returns the number of rows in the grid.
func (g Grid) Rows() int {
	return len(g)
}

// Row returns row r, or nil when r is out of range.
func (g Grid) Row(r int) []Cell {
	if r < 0 || r >= len(g) {
		return nil
	}
	return g[r]
}

// Cell returns the cell at (r, c); out-of-range coordinates yield a blank cell.
func (g Grid) Cell(r, c int) Cell {
	row := g.Row(r)
	if c < 0 || c >= len(row) {
		return Cell{}
	}
	return row[c]
}
