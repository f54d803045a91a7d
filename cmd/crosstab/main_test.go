package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/crosstab/internal/models"
	"github.com/xuri/excelize/v2"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `storage:
  database_path: ./db/surveys.db
  uploads_dir: ./uploads
  data_dir: ./surveys
  bleve_index_path: ./indices/bleve
parser:
  workers: 2
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeBannerWorkbook(t *testing.T, dir string) string {
	t.Helper()
	rows := [][]interface{}{
		{nil, nil, "Region", nil},
		{nil, "TOTAL", "North", "South"},
		{nil, "(A)", "(B)", "(C)"},
		{"Q1. How satisfied are you?"},
		{"Satisfied", "45%", "50%", "40%"},
		{"Q2. Would you recommend us?"},
		{"Yes", 60, 30, 30},
	}
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "BANNER 1"); err != nil {
		t.Fatal(err)
	}
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			axis, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue("BANNER 1", axis, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	path := filepath.Join(dir, "wave1.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"satisfaction"}, "satisfaction"},
		{"multiple words", []string{"would", "recommend"}, "would recommend"},
		{"quoted phrase", []string{"would recommend"}, "would recommend"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildSearchQuery(tt.args); got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestSearchWithRetry(t *testing.T) {
	hit := &models.SearchResponse{Hits: []*models.SearchHit{{QuestionID: "Q1"}}}
	miss := &models.SearchResponse{Hits: []*models.SearchHit{}, Suggestions: []string{"satisfied"}}

	tests := []struct {
		name      string
		fuzzy     bool
		first     *models.SearchResponse
		second    *models.SearchResponse
		wantCalls int
		want      *models.SearchResponse
	}{
		{"hits first time", false, hit, nil, 1, hit},
		{"fuzzy retry finds hits", false, miss, hit, 2, hit},
		{"fuzzy retry finds nothing keeps suggestions", false, miss, &models.SearchResponse{}, 2, miss},
		{"already fuzzy", true, miss, hit, 1, miss},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []bool
			run := func(q *models.SearchQuery) (*models.SearchResponse, error) {
				calls = append(calls, q.FuzzyEnabled)
				if len(calls) == 1 {
					return tt.first, nil
				}
				return tt.second, nil
			}
			got, err := searchWithRetry(&models.SearchQuery{Query: "satisfed", FuzzyEnabled: tt.fuzzy}, run)
			if err != nil {
				t.Fatal(err)
			}
			if len(calls) != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", len(calls), tt.wantCalls)
			}
			if tt.wantCalls == 2 && !calls[1] {
				t.Error("retry should enable fuzzy matching")
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadConfig_prefersLocalConfigForDefaultPath(t *testing.T) {
	path := writeConfig(t)
	t.Chdir(filepath.Dir(path))

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Parser.Workers != 2 {
		t.Errorf("workers = %d", cfg.Parser.Workers)
	}
	if want := filepath.Join(filepath.Dir(path), "db", "surveys.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database path = %q, want %q", cfg.Storage.DatabasePath, want)
	}
}

func TestLoadConfig_missing(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestParseCommand(t *testing.T) {
	dir := t.TempDir()
	wb := writeBannerWorkbook(t, dir)

	out, err := run(t, "parse", wb)
	if err != nil {
		t.Fatal(err)
	}
	var res struct {
		Filename       string   `json:"filename"`
		SheetNames     []string `json:"sheet_names"`
		TotalQuestions int      `json:"total_questions"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("parse output is not JSON: %v\n%s", err, out)
	}
	if res.Filename != "wave1.xlsx" || res.TotalQuestions != 2 || len(res.SheetNames) != 1 {
		t.Errorf("parse result = %+v", res)
	}

	target := filepath.Join(dir, "out.json")
	if _, err := run(t, "parse", wb, "-o", target, "--pretty"); err != nil {
		t.Fatal(err)
	}
	written, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(written), "\n  \"filename\": \"wave1.xlsx\"") {
		t.Errorf("expected indented JSON, got:\n%s", written)
	}

	out, err = run(t, "parse", wb, "--summary")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "TOTAL / Region") {
		t.Errorf("summary:\n%s", out)
	}

	if _, err := run(t, "parse", filepath.Join(dir, "missing.xlsx")); err == nil {
		t.Error("expected error for missing workbook")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.json")
	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := writeFileAtomic(target, func(w io.Writer) error {
		_, _ = io.WriteString(w, `{"partial"`)
		return errors.New("encode failed")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got, _ := os.ReadFile(target); string(got) != "old" {
		t.Errorf("target changed after failed write: %q", got)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %d entries", len(entries))
	}

	if err := writeFileAtomic(target, func(w io.Writer) error {
		_, err := io.WriteString(w, "new")
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if got, _ := os.ReadFile(target); string(got) != "new" {
		t.Errorf("target = %q, want new", got)
	}
}

func TestSurveyCommands(t *testing.T) {
	cfg := writeConfig(t)
	wb := writeBannerWorkbook(t, t.TempDir())

	out, err := run(t, "--config", cfg, "ingest", wb)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "(banner) from wave1.xlsx") {
		t.Fatalf("ingest output: %q", out)
	}
	id := strings.Fields(out)[1]

	out, err = run(t, "--config", cfg, "--format", "json", "list")
	if err != nil {
		t.Fatal(err)
	}
	var list []struct {
		ID   string `json:"id"`
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("list output: %v\n%s", err, out)
	}
	if len(list) != 1 || list[0].ID != id || list[0].Kind != "banner" {
		t.Errorf("list = %+v", list)
	}

	out, err = run(t, "--config", cfg, "questions", id)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Fields(out)[0] != "Q1" || !strings.Contains(out, "Q2") {
		t.Errorf("questions output: %q", out)
	}

	out, err = run(t, "--config", cfg, "question", id, "Q1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Q1. How satisfied are you?") || !strings.Contains(out, "North (B)") {
		t.Errorf("question output:\n%s", out)
	}

	out, err = run(t, "--config", cfg, "search", "--server", "", "recommend")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Found 1 questions") || !strings.Contains(out, id) {
		t.Errorf("search output:\n%s", out)
	}

	out, err = run(t, "--config", cfg, "--format", "json", "status", "--server", "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"surveys": 1`) {
		t.Errorf("status output:\n%s", out)
	}

	if _, err := run(t, "--config", cfg, "delete", id); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "--config", cfg, "show", id); err == nil {
		t.Error("show after delete should fail")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "crosstab version ") {
		t.Errorf("version output: %q", out)
	}
}

func TestUnknownFormat(t *testing.T) {
	cfg := writeConfig(t)
	if _, err := run(t, "--config", cfg, "--format", "yaml", "list"); err == nil {
		t.Error("expected error for unknown format")
	}
}
