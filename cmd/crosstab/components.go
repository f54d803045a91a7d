package main

import (
	"context"
	"fmt"

	"github.com/hyperjump/crosstab/internal/banner"
	"github.com/hyperjump/crosstab/internal/config"
	"github.com/hyperjump/crosstab/internal/keyword"
	"github.com/hyperjump/crosstab/internal/storage"
	"github.com/hyperjump/crosstab/internal/survey"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	Files        *storage.FileStore
	KeywordIndex keyword.QuestionIndex
	Surveys      *survey.Service
}

// Close releases the database and the question index.
func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func newParser(cfg *config.Config, logger *zap.Logger) *banner.Parser {
	opts := []banner.Option{
		banner.WithWorkers(cfg.Parser.Workers),
		banner.WithLogger(logger),
	}
	if len(cfg.Parser.DemographicKeywords) > 0 {
		h := banner.DefaultHeuristics()
		h.DemographicKeywords = cfg.Parser.DemographicKeywords
		opts = append(opts, banner.WithHeuristics(h))
	}
	return banner.NewParser(opts...)
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	files, err := storage.NewFileStore(cfg.Storage.DataDir, cfg.Storage.UploadsDir)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}
	index, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize question index: %w", err)
	}
	c := &Components{Storage: store, Files: files, KeywordIndex: index}
	c.Surveys = survey.NewService(store, files, index,
		survey.WithLogger(logger),
		survey.WithParser(newParser(cfg, logger)),
		survey.WithAllowedExtensions(cfg.Ingest.AllowedExtensions),
	)

	// A fresh index next to existing surveys means the index directory was
	// removed; rebuild it from the stored documents.
	docs, err := index.DocCount()
	if err != nil {
		c.Close()
		return nil, err
	}
	if docs == 0 {
		if n, err := store.CountSurveys(ctx); err == nil && n > 0 {
			rebuilt, err := c.Surveys.Reindex(ctx)
			if err != nil {
				c.Close()
				return nil, fmt.Errorf("failed to rebuild question index: %w", err)
			}
			logger.Info("question index rebuilt", zap.Int("surveys", rebuilt))
		}
	}
	return c, nil
}
