package tabular

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrUnknownColumn is returned when a cross-tab names a column the table lacks.
var ErrUnknownColumn = errors.New("unknown column")

// CrossTab is a two-way frequency table.
type CrossTab struct {
	RowVar       string      `json:"row_var"`
	ColVar       string      `json:"col_var"`
	RowKeys      []string    `json:"row_keys"`
	ColKeys      []string    `json:"col_keys"`
	Counts       [][]int     `json:"counts"`
	ColumnPct    [][]float64 `json:"column_pct"`
	ColumnTotals []int       `json:"column_totals"`
	Total        int         `json:"total"`
}

// Compute counts rows of t grouped by the values of rowVar and colVar after
// keeping only rows where every filter column equals its value. Rows with a
// blank rowVar or colVar value are not counted. Keys are sorted.
func Compute(t *Table, rowVar, colVar string, filters map[string]string) (*CrossTab, error) {
	ri, ci := t.ColumnIndex(rowVar), t.ColumnIndex(colVar)
	if ri < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, rowVar)
	}
	if ci < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, colVar)
	}
	type filter struct {
		col   int
		value string
	}
	fs := make([]filter, 0, len(filters))
	for name, v := range filters {
		i := t.ColumnIndex(name)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
		fs = append(fs, filter{col: i, value: v})
	}

	type cell struct{ row, col string }
	counts := make(map[cell]int)
	rowSeen, colSeen := map[string]bool{}, map[string]bool{}
rows:
	for _, row := range t.Rows {
		for _, f := range fs {
			if row[f.col] != f.value {
				continue rows
			}
		}
		rk, ck := row[ri], row[ci]
		if rk == "" || ck == "" {
			continue
		}
		counts[cell{rk, ck}]++
		rowSeen[rk], colSeen[ck] = true, true
	}

	ct := &CrossTab{RowVar: rowVar, ColVar: colVar, RowKeys: sortedKeys(rowSeen), ColKeys: sortedKeys(colSeen)}
	ct.ColumnTotals = make([]int, len(ct.ColKeys))
	ct.Counts = make([][]int, len(ct.RowKeys))
	for i, rk := range ct.RowKeys {
		ct.Counts[i] = make([]int, len(ct.ColKeys))
		for j, ck := range ct.ColKeys {
			n := counts[cell{rk, ck}]
			ct.Counts[i][j] = n
			ct.ColumnTotals[j] += n
			ct.Total += n
		}
	}
	ct.ColumnPct = make([][]float64, len(ct.RowKeys))
	for i := range ct.RowKeys {
		ct.ColumnPct[i] = make([]float64, len(ct.ColKeys))
		for j := range ct.ColKeys {
			if ct.ColumnTotals[j] > 0 {
				ct.ColumnPct[i][j] = roundPct(float64(ct.Counts[i][j]) / float64(ct.ColumnTotals[j]) * 100)
			}
		}
	}
	return ct, nil
}

func roundPct(v float64) float64 {
	return math.Round(v*10) / 10
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
