package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/crosstab/internal/banner"
	"github.com/hyperjump/crosstab/internal/models"
	"github.com/hyperjump/crosstab/internal/tabular"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteSearchResults(t *testing.T) {
	resp := &models.SearchResponse{
		Query:     "recommend",
		QueryTime: 3,
		Total:     1,
		Hits: []*models.SearchHit{
			{SurveyID: "ab12cd34", Sheet: "BANNER 1", QuestionID: "Q2", Text: "Would you recommend us?", Score: 1.25, Rank: 1},
		},
	}

	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, resp, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.SearchResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Query != "recommend" || len(decoded.Hits) != 1 || decoded.Hits[0].QuestionID != "Q2" {
		t.Errorf("decoded = %+v", decoded)
	}

	buf.Reset()
	if err := WriteSearchResults(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 1 questions", "ab12cd34", "BANNER 1", "Would you recommend us?"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSearchResults_suggestions(t *testing.T) {
	var buf bytes.Buffer
	resp := &models.SearchResponse{Query: "satisfed", Suggestions: []string{"satisfied"}}
	if err := WriteSearchResults(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Did you mean: satisfied") {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteSurveys(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSurveys(&buf, nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty list JSON = %q", buf.String())
	}

	buf.Reset()
	surveys := []*models.Survey{{
		ID: "ab12cd34", Filename: "wave.xlsx", Kind: models.KindBanner,
		QuestionCount: 12, UploadedAt: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
	}}
	if err := WriteSurveys(&buf, surveys, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "ab12cd34") || !strings.Contains(out, "2024-05-01 09:30") {
		t.Errorf("text output:\n%s", out)
	}
}

func TestWriteQuestion(t *testing.T) {
	q := &banner.QuestionRecord{
		ID:   "Q1",
		Text: "Q1. How satisfied are you?",
		Responses: []banner.ResponseRow{
			{Label: "Satisfied", Values: []banner.Value{banner.String("45%"), banner.Number(50), banner.Null()}},
		},
	}
	var buf bytes.Buffer
	if err := WriteQuestion(&buf, q, []string{"TOTAL", "North", "South"}, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Q1. How satisfied are you?", "RESPONSE", "North", "45%", "50"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Q1. Q1.") {
		t.Errorf("question id repeated:\n%s", out)
	}

	buf.Reset()
	if err := WriteQuestion(&buf, q, nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `null`) {
		t.Errorf("blank cell should encode as null:\n%s", buf.String())
	}
}

func TestWriteQuestion_indices(t *testing.T) {
	q := &banner.QuestionRecord{
		ID:   banner.IndicesID,
		Text: banner.IndicesText,
		Responses: []banner.ResponseRow{
			{Label: "Engagement Index", Values: []banner.Value{banner.Number(112)}},
		},
	}
	var buf bytes.Buffer
	if err := WriteQuestion(&buf, q, []string{"TOTAL"}, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, banner.IndicesText+"\n") || !strings.Contains(out, "METRIC") {
		t.Errorf("indices output:\n%s", out)
	}
	if strings.Contains(out, "RESPONSE") {
		t.Errorf("indices should be headed as metrics:\n%s", out)
	}
}

func TestWriteCrossTab(t *testing.T) {
	ct := &tabular.CrossTab{
		RowVar: "Satisfied", ColVar: "Region",
		RowKeys: []string{"No", "Yes"}, ColKeys: []string{"North", "South"},
		Counts:       [][]int{{0, 1}, {1, 1}},
		ColumnPct:    [][]float64{{0, 50}, {100, 50}},
		ColumnTotals: []int{1, 2},
		Total:        3,
	}
	var buf bytes.Buffer
	if err := WriteCrossTab(&buf, ct, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Satisfied by Region (n=3)") || !strings.Contains(out, "1 (50.0%)") {
		t.Errorf("text output:\n%s", out)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 << 20, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
