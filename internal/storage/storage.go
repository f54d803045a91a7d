// Package storage persists survey metadata, stored survey documents and uploads.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/crosstab/internal/models"
)

// ErrNotFound is returned when a survey or stored document does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines survey metadata persistence operations.
type Storage interface {
	CreateSurvey(ctx context.Context, s *models.Survey) error
	// UpsertSurvey inserts s or replaces the survey with the same id.
	UpsertSurvey(ctx context.Context, s *models.Survey) error
	GetSurvey(ctx context.Context, id string) (*models.Survey, error)
	DeleteSurvey(ctx context.Context, id string) error
	// ListSurveys returns surveys newest first.
	ListSurveys(ctx context.Context, offset, limit int) ([]*models.Survey, error)
	CountSurveys(ctx context.Context) (int64, error)

	Close() error
}
