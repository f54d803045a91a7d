package survey

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/hyperjump/crosstab/internal/banner"
	"github.com/hyperjump/crosstab/internal/fileid"
	"github.com/hyperjump/crosstab/internal/keyword"
	"github.com/hyperjump/crosstab/internal/models"
	"github.com/hyperjump/crosstab/internal/storage"
	"github.com/hyperjump/crosstab/internal/tabular"
	"go.uber.org/zap"
)

const listPageSize = 200

// Get returns survey metadata.
func (s *Service) Get(ctx context.Context, id string) (*models.Survey, error) {
	return s.store.GetSurvey(ctx, id)
}

// List returns surveys newest first.
func (s *Service) List(ctx context.Context, offset, limit int) ([]*models.Survey, error) {
	if limit <= 0 {
		limit = listPageSize
	}
	return s.store.ListSurveys(ctx, offset, limit)
}

// Delete removes a survey's metadata, stored document, uploads and index entries.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.store.GetSurvey(ctx, id); err != nil {
		return err
	}
	if err := s.purge(ctx, id); err != nil {
		return err
	}
	s.logger.Info("survey deleted", zap.String("id", id))
	return nil
}

// DeleteFile removes the survey ingested from path, if any.
func (s *Service) DeleteFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	return s.Delete(ctx, fileid.SurveyID(absPath))
}

// purge removes everything stored for id; missing pieces are ignored.
func (s *Service) purge(ctx context.Context, id string) error {
	if _, err := s.index.DeleteSurvey(ctx, id); err != nil {
		return fmt.Errorf("failed to delete from question index: %w", err)
	}
	if err := s.store.DeleteSurvey(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to delete survey: %w", err)
	}
	if err := s.files.RemoveDocument(id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if err := s.files.RemoveUploads(id); err != nil {
		return fmt.Errorf("failed to delete uploads: %w", err)
	}
	return nil
}

// Document opens the stored JSON document of a survey.
func (s *Service) Document(ctx context.Context, id string) (io.ReadCloser, error) {
	if _, err := s.store.GetSurvey(ctx, id); err != nil {
		return nil, err
	}
	f, err := s.files.OpenDocument(id)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Banner loads the stored parse result of a banner survey.
func (s *Service) Banner(ctx context.Context, id string) (*banner.ParseResult, error) {
	if err := s.requireKind(ctx, id, models.KindBanner); err != nil {
		return nil, err
	}
	var res banner.ParseResult
	if err := s.files.ReadDocument(id, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Table loads the stored table of a tabular survey.
func (s *Service) Table(ctx context.Context, id string) (*tabular.Table, error) {
	if err := s.requireKind(ctx, id, models.KindTabular); err != nil {
		return nil, err
	}
	var tbl tabular.Table
	if err := s.files.ReadDocument(id, &tbl); err != nil {
		return nil, err
	}
	return &tbl, nil
}

func (s *Service) requireKind(ctx context.Context, id string, kind models.SurveyKind) error {
	sv, err := s.store.GetSurvey(ctx, id)
	if err != nil {
		return err
	}
	if sv.Kind != kind {
		return fmt.Errorf("%w: %s is %s", ErrWrongKind, id, sv.Kind)
	}
	return nil
}

// Question returns one question of a banner survey. An empty sheet means the first banner.
func (s *Service) Question(ctx context.Context, id, sheet, questionID string) (*banner.QuestionRecord, error) {
	res, err := s.Banner(ctx, id)
	if err != nil {
		return nil, err
	}
	return res.Question(sheet, questionID)
}

// QuestionIDs lists the question ids of a banner survey's first banner.
func (s *Service) QuestionIDs(ctx context.Context, id string) ([]string, error) {
	res, err := s.Banner(ctx, id)
	if err != nil {
		return nil, err
	}
	return res.QuestionIDs(), nil
}

// SearchQuestions matches term against the question text of a survey's first banner.
func (s *Service) SearchQuestions(ctx context.Context, id, term string) ([]banner.QuestionSummary, error) {
	res, err := s.Banner(ctx, id)
	if err != nil {
		return nil, err
	}
	return res.SearchQuestions(term), nil
}

// CrossTab computes a cross-tabulation over a tabular survey.
func (s *Service) CrossTab(ctx context.Context, id, rowVar, colVar string, filters map[string]string) (*tabular.CrossTab, error) {
	tbl, err := s.Table(ctx, id)
	if err != nil {
		return nil, err
	}
	return tabular.Compute(tbl, rowVar, colVar, filters)
}

// Search runs a keyword search over the questions of all banner surveys.
func (s *Service) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	results, err := s.index.Search(ctx, q.Query, q.Limit, &keyword.SearchOptions{
		SurveyID:     q.SurveyID,
		TextBoost:    s.textBoost,
		FuzzyEnabled: q.FuzzyEnabled,
	})
	if err != nil {
		return nil, err
	}
	resp := &models.SearchResponse{
		Hits:  make([]*models.SearchHit, 0, len(results)),
		Total: len(results),
		Query: q.Query,
	}
	for i, r := range results {
		resp.Hits = append(resp.Hits, &models.SearchHit{
			SurveyID:   r.Doc.SurveyID,
			Filename:   r.Doc.Filename,
			Sheet:      r.Doc.Sheet,
			QuestionID: r.Doc.QuestionID,
			Text:       r.Doc.Text,
			Score:      r.Score,
			Rank:       i + 1,
		})
	}
	if len(resp.Hits) == 0 && s.suggester != nil {
		if suggestions, err := s.suggester.Suggest(q.Query); err == nil {
			resp.Suggestions = suggestions
		}
	}
	resp.QueryTime = time.Since(start).Milliseconds()
	s.logger.Debug("question search",
		zap.String("query", q.Query),
		zap.Int("hits", resp.Total),
		zap.Int64("ms", resp.QueryTime))
	return resp, nil
}

// Status reports survey count, indexed questions and disk usage.
func (s *Service) Status(ctx context.Context) (*models.SurveyStatus, error) {
	count, err := s.store.CountSurveys(ctx)
	if err != nil {
		return nil, err
	}
	indexed, err := s.index.DocCount()
	if err != nil {
		return nil, err
	}
	usage, err := s.files.DiskUsage()
	if err != nil {
		return nil, err
	}
	st := &models.SurveyStatus{Surveys: int(count), IndexedQuestions: indexed, DiskUsageBytes: usage}
	if p, ok := s.store.(interface{ Path() string }); ok {
		st.DatabaseSizeBytes, _ = storage.DiskUsageBytes(p.Path(), p.Path()+"-wal")
	}
	return st, nil
}

// Reindex rebuilds question index entries from stored banner documents and
// returns the number of surveys indexed. Used when the index directory was
// removed or its mapping changed.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	n := 0
	for offset := 0; ; offset += listPageSize {
		page, err := s.store.ListSurveys(ctx, offset, listPageSize)
		if err != nil {
			return n, err
		}
		for _, sv := range page {
			if sv.Kind != models.KindBanner {
				continue
			}
			var res banner.ParseResult
			if err := s.files.ReadDocument(sv.ID, &res); err != nil {
				return n, err
			}
			if _, err := s.index.DeleteSurvey(ctx, sv.ID); err != nil {
				return n, err
			}
			if err := s.index.IndexBatch(ctx, questionDocs(sv.ID, sv.Filename, &res)); err != nil {
				return n, err
			}
			n++
		}
		if len(page) < listPageSize {
			return n, nil
		}
	}
}
