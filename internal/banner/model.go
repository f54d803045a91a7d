// Package banner infers the structure of banner (cross-tabulation) survey
// reports from cell content and turns each sheet into a normalized record.
package banner

// ParseResult is the outcome of parsing one workbook.
type ParseResult struct {
	Filename       string   `json:"filename"`
	SheetNames     []string `json:"sheet_names"`
	TotalQuestions int      `json:"total_questions"` // question count of the first banner
	Banners        Banners  `json:"banners"`
}

// BannerRecord is one parsed sheet.
type BannerRecord struct {
	SheetName      string              `json:"sheet_name"`
	DisplayName    string              `json:"display_name"`
	Demographics   []DemographicColumn `json:"demographics"`
	ColumnLabels   []string            `json:"column_labels"`
	Questions      []QuestionRecord    `json:"questions"`
	TotalQuestions int                 `json:"total_questions"`
}

// DemographicColumn maps one grid column to a demographic segment.
type DemographicColumn struct {
	Category    string `json:"category"`
	Label       string `json:"label"`
	ColumnIndex int    `json:"column_index"`
}

// QuestionRecord is one question block, or the synthetic indices block.
type QuestionRecord struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	SourceRow int           `json:"row"`
	Responses []ResponseRow `json:"responses"`
}

// ResponseRow holds one response line; Values align with the banner's demographics.
type ResponseRow struct {
	Label  string  `json:"label"`
	Values []Value `json:"values"`
}

// QuestionSummary is the id/text projection returned by question search.
type QuestionSummary struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// IsIndices reports whether q is the synthetic composite-metrics record.
func (q *QuestionRecord) IsIndices() bool {
	return q.ID == IndicesID
}
