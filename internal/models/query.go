package models

import (
	"errors"
	"strings"
)

// ErrEmptyQuery is returned by Validate for blank queries.
var ErrEmptyQuery = errors.New("query cannot be empty")

// SearchQuery is a cross-survey question search request.
type SearchQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
	// SurveyID restricts hits to one survey when set.
	SurveyID string `json:"survey_id,omitempty"`
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool `json:"fuzzy_enabled,omitempty"`
}

// Validate ensures the search query has valid fields and sets defaults.
// Returns an error if the query is empty; otherwise normalizes limit.
func (q *SearchQuery) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return ErrEmptyQuery
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	return nil
}
