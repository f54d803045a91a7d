// Package cli renders command output as text or JSON.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hyperjump/crosstab/internal/banner"
	"github.com/hyperjump/crosstab/internal/models"
	"github.com/hyperjump/crosstab/internal/tabular"
	"github.com/hyperjump/crosstab/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const questionTextWidth = 80

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteJSON encodes v to w, indented when pretty is set.
func WriteJSON(w io.Writer, v interface{}, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// WriteSearchResults writes cross-survey question hits.
func WriteSearchResults(w io.Writer, resp *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, resp, true)
	}
	fmt.Fprintf(w, "Found %d questions in %dms\n", resp.Total, resp.QueryTime)
	if len(resp.Hits) == 0 {
		if len(resp.Suggestions) > 0 {
			fmt.Fprintf(w, "Did you mean: %s\n", strings.Join(resp.Suggestions, ", "))
		}
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSURVEY\tSHEET\tQUESTION\tSCORE\tTEXT")
	for _, h := range resp.Hits {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.3f\t%s\n",
			h.Rank, h.SurveyID, h.Sheet, h.QuestionID, h.Score, utils.Truncate(h.Text, questionTextWidth))
	}
	return tw.Flush()
}

// WriteSurveys writes a survey listing.
func WriteSurveys(w io.Writer, surveys []*models.Survey, format OutputFormat) error {
	if format == OutputJSON {
		if surveys == nil {
			surveys = []*models.Survey{}
		}
		return WriteJSON(w, surveys, true)
	}
	if len(surveys) == 0 {
		fmt.Fprintln(w, "No surveys.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tFILE\tQUESTIONS\tROWS\tUPLOADED")
	for _, s := range surveys {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			s.ID, s.Kind, s.Filename, s.QuestionCount, s.RowCount, s.UploadedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// WriteSurvey writes one survey's metadata.
func WriteSurvey(w io.Writer, s *models.Survey, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, s, true)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", s.ID)
	fmt.Fprintf(tw, "File:\t%s (%s)\n", s.Filename, s.FileType)
	fmt.Fprintf(tw, "Kind:\t%s\n", s.Kind)
	fmt.Fprintf(tw, "Uploaded:\t%s\n", s.UploadedAt.Format("2006-01-02 15:04:05"))
	if s.Kind == models.KindBanner {
		fmt.Fprintf(tw, "Sheets:\t%d\n", s.SheetCount)
		fmt.Fprintf(tw, "Questions:\t%d\n", s.QuestionCount)
	} else {
		fmt.Fprintf(tw, "Rows:\t%d\n", s.RowCount)
	}
	fmt.Fprintf(tw, "Columns:\t%s\n", strings.Join(s.Columns, ", "))
	if s.SourcePath != "" {
		fmt.Fprintf(tw, "Source:\t%s\n", s.SourcePath)
	}
	return tw.Flush()
}

// WriteQuestionIDs writes question ids one per line.
func WriteQuestionIDs(w io.Writer, ids []string, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, map[string][]string{"questions": ids}, true)
	}
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}

// WriteQuestionSummaries writes question search matches.
func WriteQuestionSummaries(w io.Writer, qs []banner.QuestionSummary, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, map[string][]banner.QuestionSummary{"questions": qs}, true)
	}
	for _, q := range qs {
		fmt.Fprintf(w, "%s\t%s\n", q.ID, utils.Truncate(q.Text, questionTextWidth))
	}
	return nil
}

// WriteQuestion writes a question and its response table. columns labels the
// value columns in text output and may be shorter than the values.
func WriteQuestion(w io.Writer, q *banner.QuestionRecord, columns []string, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, q, true)
	}
	fmt.Fprintf(w, "%s\n\n", q.Text)
	if len(q.Responses) == 0 {
		fmt.Fprintln(w, "(no responses)")
		return nil
	}
	rowHeading := "RESPONSE"
	if q.IsIndices() {
		rowHeading = "METRIC"
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := []string{rowHeading}
	header = append(header, columns...)
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")
	for _, r := range q.Responses {
		cells := make([]string, 0, len(r.Values)+1)
		cells = append(cells, r.Label)
		for _, v := range r.Values {
			cells = append(cells, v.Text())
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	return tw.Flush()
}

// WriteParseSummary writes a parse result: the full document for JSON, one
// line per banner otherwise.
func WriteParseSummary(w io.Writer, res *banner.ParseResult, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, res, true)
	}
	fmt.Fprintf(w, "%s: %d sheets, %d questions in first banner\n", res.Filename, len(res.SheetNames), res.TotalQuestions)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SHEET\tBANNER\tCOLUMNS\tQUESTIONS")
	for _, b := range res.Banners.All() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", b.SheetName, b.DisplayName, len(b.Demographics), b.TotalQuestions)
	}
	return tw.Flush()
}

// WriteStatus writes storage and index counters.
func WriteStatus(w io.Writer, st *models.SurveyStatus, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, st, true)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Surveys:\t%d\n", st.Surveys)
	fmt.Fprintf(tw, "Indexed questions:\t%d\n", st.IndexedQuestions)
	fmt.Fprintf(tw, "Disk usage:\t%s\n", FormatBytes(st.DiskUsageBytes))
	fmt.Fprintf(tw, "Database size:\t%s\n", FormatBytes(st.DatabaseSizeBytes))
	return tw.Flush()
}

// WriteCrossTab writes counts with column percentages.
func WriteCrossTab(w io.Writer, ct *tabular.CrossTab, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, ct, true)
	}
	fmt.Fprintf(w, "%s by %s (n=%d)\n\n", ct.RowVar, ct.ColVar, ct.Total)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\t"+strings.Join(ct.ColKeys, "\t")+"\t")
	for i, key := range ct.RowKeys {
		cells := []string{key}
		for j := range ct.ColKeys {
			cells = append(cells, fmt.Sprintf("%d (%.1f%%)", ct.Counts[i][j], ct.ColumnPct[i][j]))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	totals := []string{"Total"}
	for _, n := range ct.ColumnTotals {
		totals = append(totals, fmt.Sprint(n))
	}
	fmt.Fprintln(tw, strings.Join(totals, "\t")+"\t")
	return tw.Flush()
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
