package models

// SearchHit is a single question search hit.
type SearchHit struct {
	SurveyID   string  `json:"survey_id"`
	Filename   string  `json:"filename"`
	Sheet      string  `json:"sheet"`
	QuestionID string  `json:"question_id"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
}

// SearchResponse is the response for a question search request.
type SearchResponse struct {
	Hits      []*SearchHit `json:"hits"`
	Total     int          `json:"total"`
	QueryTime int64        `json:"query_time_ms"`
	Query     string       `json:"query"`
	// Suggestions holds "Did you mean?" queries when nothing matched.
	Suggestions []string `json:"suggestions,omitempty"`
}

// SurveyStatus summarizes what the service holds.
type SurveyStatus struct {
	Surveys           int    `json:"surveys"`
	IndexedQuestions  uint64 `json:"indexed_questions"`
	DiskUsageBytes    int64  `json:"disk_usage_bytes"`
	DatabaseSizeBytes int64  `json:"database_size_bytes"`
}
