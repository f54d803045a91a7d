package tabular

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = ` Region ,Gender,Satisfied
North,Male,Yes
North,Female,No
South,Female,Yes
South,Male
East, Female ,Yes
`

func TestReadCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, []string{"Region", "Gender", "Satisfied"}, tbl.Columns)
	require.Len(t, tbl.Rows, 5)
	assert.Equal(t, []string{"South", "Male", ""}, tbl.Rows[3])
	assert.Equal(t, []string{"East", "Female", "Yes"}, tbl.Rows[4])
}

func TestReadCSV_bom(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("\ufeffregion,age\nNorth,18-34\nSouth,35-54\nNorth,35-54\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"region", "age"}, tbl.Columns)

	ct, err := Compute(tbl, "region", "age", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"North", "South"}, ct.RowKeys)
}

func TestReadCSV_empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadXLSX_firstSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Region", "Score"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"North", 5}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"South"}))
	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Other", "A1", "ignored"))

	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)

	tbl, err := ReadXLSX(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"Region", "Score"}, tbl.Columns)
	assert.Equal(t, [][]string{{"North", "5"}, {"South", ""}}, tbl.Rows)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "data.CSV")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))
	tbl, err := Load(csvPath)
	require.NoError(t, err)
	assert.Len(t, tbl.Rows, 5)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))
	_, err = Load(txt)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTable_ColumnIndex(t *testing.T) {
	tbl := &Table{Columns: []string{"a", "b"}, Rows: [][]string{{"1", "2"}}}
	assert.Equal(t, 1, tbl.ColumnIndex("b"))
	assert.Equal(t, -1, tbl.ColumnIndex("c"))
}
