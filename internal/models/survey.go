// Package models defines core data structures for surveys, indexed questions, and search results.
package models

import "time"

// SurveyKind tells how a stored survey was parsed.
type SurveyKind string

const (
	// KindBanner is a cross-tab report parsed into banners.
	KindBanner SurveyKind = "banner"
	// KindTabular is respondent-level data stored as a flat table.
	KindTabular SurveyKind = "tabular"
)

// Survey is the stored metadata for one ingested file.
type Survey struct {
	ID         string     `json:"id" db:"id"`
	Filename   string     `json:"filename" db:"filename"`
	UploadedAt time.Time  `json:"uploaded_at" db:"uploaded_at"`
	FileType   string     `json:"file_type" db:"file_type"`
	Kind       SurveyKind `json:"kind" db:"kind"`
	// Columns are the table header for tabular surveys and the first
	// banner's segment labels for banner surveys.
	Columns       []string `json:"columns" db:"columns"`
	RowCount      int      `json:"row_count" db:"row_count"`
	SheetCount    int      `json:"sheet_count" db:"sheet_count"`
	QuestionCount int      `json:"question_count" db:"question_count"`
	// SourcePath is set for surveys ingested from a watched or given path.
	SourcePath string `json:"source_path,omitempty" db:"source_path"`
}
