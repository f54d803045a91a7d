// Package keyword provides keyword (BM25) indexing and search over banner questions.
package keyword

import (
	"context"

	"github.com/hyperjump/crosstab/internal/models"
)

// SearchOptions optional parameters for question search. Nil means use defaults.
type SearchOptions struct {
	// SurveyID restricts hits to one survey.
	SurveyID string
	// TextBoost multiplies the score of matches in the question text relative
	// to matches in response labels. Values <= 0 mean 1.
	TextBoost float64
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	// Default is 2 when FuzzyEnabled is true.
	Fuzziness int
}

// QuestionIndex defines question indexing and search operations.
type QuestionIndex interface {
	// IndexBatch indexes docs keyed by id in one batch.
	IndexBatch(ctx context.Context, docs map[string]*models.QuestionDoc) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*QuestionResult, error)
	// DeleteSurvey removes every question of a survey and returns how many were removed.
	DeleteSurvey(ctx context.Context, surveyID string) (int, error)
	Close() error
	// DocCount returns the total number of indexed questions.
	DocCount() (uint64, error)
}

// QuestionResult is a single keyword search hit with its stored fields.
type QuestionResult struct {
	ID    string
	Score float64
	Doc   models.QuestionDoc
}

// TermDictionary provides index terms with their document frequencies.
// This interface allows dependency injection for testing.
type TermDictionary interface {
	Terms() (map[string]int, error)
}
