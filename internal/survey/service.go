// Package survey ingests survey files, stores their parsed form, and serves
// read projections and question search over them.
package survey

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/crosstab/internal/banner"
	"github.com/hyperjump/crosstab/internal/fileid"
	"github.com/hyperjump/crosstab/internal/keyword"
	"github.com/hyperjump/crosstab/internal/models"
	"github.com/hyperjump/crosstab/internal/storage"
	"github.com/hyperjump/crosstab/internal/tabular"
	"github.com/hyperjump/crosstab/pkg/utils"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when no survey has the requested id.
	ErrNotFound = storage.ErrNotFound
	// ErrUnsupportedFormat is returned for files whose extension is not allowed.
	ErrUnsupportedFormat = errors.New("unsupported file type")
	// ErrWrongKind is returned when a banner projection is requested for a
	// tabular survey or the other way round.
	ErrWrongKind = errors.New("operation not supported for this survey kind")
)

// DefaultExtensions are accepted when no allowed list is configured.
var DefaultExtensions = []string{".xlsx", ".xlsm", ".csv"}

// Service coordinates the metadata store, stored documents and the question index.
type Service struct {
	store       storage.Storage
	files       *storage.FileStore
	index       keyword.QuestionIndex
	parser      *banner.Parser
	suggester   *keyword.Suggester
	allowedExts []string
	textBoost   float64
	logger      *zap.Logger
	newID       func() string
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a logger for ingest and delete events.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithParser sets the banner parser.
func WithParser(p *banner.Parser) Option {
	return func(s *Service) { s.parser = p }
}

// WithAllowedExtensions restricts accepted uploads; entries may omit the dot.
func WithAllowedExtensions(exts []string) Option {
	return func(s *Service) {
		if len(exts) > 0 {
			s.allowedExts = exts
		}
	}
}

// NewService creates a survey service. When index also implements
// keyword.TermDictionary, searches with no hits return spelling suggestions.
func NewService(store storage.Storage, files *storage.FileStore, index keyword.QuestionIndex, opts ...Option) *Service {
	s := &Service{
		store:       store,
		files:       files,
		index:       index,
		allowedExts: DefaultExtensions,
		textBoost:   2,
		newID:       func() string { return uuid.New().String()[:fileid.Length] },
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.NopIfNil(s.logger)
	if s.parser == nil {
		s.parser = banner.NewParser(banner.WithLogger(s.logger))
	}
	if dict, ok := index.(keyword.TermDictionary); ok {
		s.suggester = keyword.NewSuggester(dict)
	}
	return s
}

// Ingest stores an uploaded file under a new id. Nothing is persisted when
// any step fails.
func (s *Service) Ingest(ctx context.Context, filename string, r io.Reader) (*models.Survey, error) {
	name := utils.SanitizeFilename(filename)
	ext := strings.ToLower(filepath.Ext(name))
	if !extensionAllowed(ext, s.allowedExts) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
	id, err := s.freshID(ctx)
	if err != nil {
		return nil, err
	}
	path, err := s.files.SaveUpload(id, name, r)
	if err != nil {
		return nil, err
	}
	sv, err := s.ingest(ctx, id, name, path, "")
	if err != nil {
		_ = s.files.RemoveUploads(id)
		return nil, err
	}
	return sv, nil
}

// ingest parses the file at path and persists the result under id.
func (s *Service) ingest(ctx context.Context, id, name, path, sourcePath string) (*models.Survey, error) {
	p, err := s.prepare(ctx, id, name, path, sourcePath)
	if err != nil {
		return nil, err
	}
	return s.commit(ctx, p)
}

// freshID returns a generated id no stored survey uses yet.
func (s *Service) freshID(ctx context.Context) (string, error) {
	for range 5 {
		id := s.newID()
		_, err := s.store.GetSurvey(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("failed to allocate survey id")
}

// IngestFile stores the file at path. The id is derived from the absolute
// path, so ingesting the same path again replaces the earlier survey.
func (s *Service) IngestFile(ctx context.Context, path string) (*models.Survey, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	name := utils.SanitizeFilename(filepath.Base(absPath))
	if !extensionAllowed(filepath.Ext(absPath), s.allowedExts) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, absPath)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}

	// Parse before touching the stored survey so that a half-written or
	// corrupt rewrite leaves the previous version in place.
	id := fileid.SurveyID(absPath)
	p, err := s.prepare(ctx, id, name, absPath, absPath)
	if err != nil {
		return nil, err
	}
	if err := s.purge(ctx, id); err != nil {
		return nil, err
	}
	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	if _, err := s.files.SaveUpload(id, name, f); err != nil {
		return nil, err
	}
	sv, err := s.commit(ctx, p)
	if err != nil {
		_ = s.files.RemoveUploads(id)
		return nil, err
	}
	return sv, nil
}

// IngestDirectory walks dir recursively and ingests each regular file with an
// allowed extension. Files that fail are logged and skipped; the first such
// error is returned along with the number of files ingested.
func (s *Service) IngestDirectory(ctx context.Context, dir string) (n int, firstErr error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !extensionAllowed(filepath.Ext(path), s.allowedExts) {
			return nil
		}
		if finfo, statErr := os.Stat(path); statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if _, ingestErr := s.IngestFile(ctx, path); ingestErr != nil {
			s.logger.Warn("ingest failed", zap.String("path", path), zap.Error(ingestErr))
			if firstErr == nil {
				firstErr = ingestErr
			}
			return nil
		}
		n++
		return nil
	})
	if err != nil {
		return n, err
	}
	return n, firstErr
}

// prepared is a parsed survey that has not been persisted yet.
type prepared struct {
	survey    *models.Survey
	doc       interface{}
	questions map[string]*models.QuestionDoc
}

// prepare parses or loads the file at path without persisting anything.
func (s *Service) prepare(ctx context.Context, id, name, path, sourcePath string) (*prepared, error) {
	ext := strings.ToLower(filepath.Ext(name))
	sv := &models.Survey{
		ID:         id,
		Filename:   name,
		UploadedAt: s.now(),
		FileType:   strings.TrimPrefix(ext, "."),
		SourcePath: sourcePath,
	}

	var doc interface{}
	var questions map[string]*models.QuestionDoc
	switch ext {
	case ".csv":
		tbl, loadErr := tabular.Load(path)
		if loadErr != nil {
			return nil, fmt.Errorf("load table: %w", loadErr)
		}
		describeTable(sv, tbl)
		doc = tbl
	default:
		res, parseErr := s.parser.ParseFile(ctx, path)
		if parseErr != nil {
			return nil, fmt.Errorf("parse workbook: %w", parseErr)
		}
		if hasQuestions(res) {
			describeBanner(sv, res)
			doc = res
			questions = questionDocs(id, name, res)
			break
		}
		tbl, loadErr := tabular.Load(path)
		if loadErr != nil {
			return nil, fmt.Errorf("load table: %w", loadErr)
		}
		describeTable(sv, tbl)
		sv.SheetCount = len(res.SheetNames)
		doc = tbl
	}
	return &prepared{survey: sv, doc: doc, questions: questions}, nil
}

// commit persists document, metadata and index entries, rolling all three
// back on failure.
func (s *Service) commit(ctx context.Context, p *prepared) (sv *models.Survey, err error) {
	sv = p.survey
	id := sv.ID
	defer func() {
		if err != nil {
			s.rollback(id)
		}
	}()
	if err = s.files.WriteDocument(id, p.doc); err != nil {
		return nil, err
	}
	// Uploads get fresh ids, so a conflict is an error; files on disk
	// replace their earlier survey.
	write := s.store.CreateSurvey
	if sv.SourcePath != "" {
		write = s.store.UpsertSurvey
	}
	if err = write(ctx, sv); err != nil {
		return nil, fmt.Errorf("failed to store survey: %w", err)
	}
	if len(p.questions) > 0 {
		if err = s.index.IndexBatch(ctx, p.questions); err != nil {
			return nil, fmt.Errorf("failed to index questions: %w", err)
		}
	}
	s.logger.Info("survey ingested",
		zap.String("id", id),
		zap.String("filename", sv.Filename),
		zap.String("kind", string(sv.Kind)),
		zap.Int("questions", sv.QuestionCount),
		zap.Int("rows", sv.RowCount))
	return sv, nil
}

// rollback removes whatever ingest managed to persist for id.
func (s *Service) rollback(id string) {
	ctx := context.Background()
	if _, err := s.index.DeleteSurvey(ctx, id); err != nil {
		s.logger.Warn("rollback index", zap.String("id", id), zap.Error(err))
	}
	if err := s.store.DeleteSurvey(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("rollback metadata", zap.String("id", id), zap.Error(err))
	}
	if err := s.files.RemoveDocument(id); err != nil {
		s.logger.Warn("rollback document", zap.String("id", id), zap.Error(err))
	}
}

func hasQuestions(res *banner.ParseResult) bool {
	for _, b := range res.Banners.All() {
		if b.TotalQuestions > 0 {
			return true
		}
	}
	return false
}

func describeBanner(sv *models.Survey, res *banner.ParseResult) {
	sv.Kind = models.KindBanner
	sv.SheetCount = len(res.SheetNames)
	sv.QuestionCount = res.TotalQuestions
	sv.Columns = []string{}
	if first := res.Banners.First(); first != nil {
		for _, d := range first.Demographics {
			sv.Columns = append(sv.Columns, d.Label)
		}
		for _, q := range first.Questions {
			sv.RowCount += len(q.Responses)
		}
	}
}

func describeTable(sv *models.Survey, tbl *tabular.Table) {
	sv.Kind = models.KindTabular
	sv.Columns = tbl.Columns
	sv.RowCount = len(tbl.Rows)
}

func questionDocs(surveyID, filename string, res *banner.ParseResult) map[string]*models.QuestionDoc {
	docs := make(map[string]*models.QuestionDoc)
	for _, b := range res.Banners.All() {
		for pos, q := range b.Questions {
			labels := make([]string, 0, len(q.Responses))
			for _, r := range q.Responses {
				labels = append(labels, r.Label)
			}
			docs[models.QuestionDocID(surveyID, b.SheetName, pos)] = &models.QuestionDoc{
				SurveyID:   surveyID,
				Filename:   filename,
				Sheet:      b.SheetName,
				QuestionID: q.ID,
				Text:       q.Text,
				Labels:     strings.Join(labels, " "),
			}
		}
	}
	return docs
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	if extNorm == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
