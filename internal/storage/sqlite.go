package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/crosstab/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS surveys (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		uploaded_at TIMESTAMP NOT NULL,
		file_type TEXT NOT NULL,
		kind TEXT NOT NULL,
		columns TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		sheet_count INTEGER NOT NULL DEFAULT 0,
		question_count INTEGER NOT NULL DEFAULT 0,
		source_path TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_surveys_uploaded_at ON surveys(uploaded_at);
	`
	_, err := db.Exec(schema)
	return err
}

const surveyColumns = `id, filename, uploaded_at, file_type, kind, columns, row_count, sheet_count, question_count, source_path`

// CreateSurvey inserts a survey. UploadedAt is set when zero.
func (s *SQLiteStorage) CreateSurvey(ctx context.Context, sv *models.Survey) error {
	return s.write(ctx, `INSERT INTO surveys (`+surveyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, sv)
}

// UpsertSurvey inserts a survey or replaces the row with the same id.
func (s *SQLiteStorage) UpsertSurvey(ctx context.Context, sv *models.Survey) error {
	return s.write(ctx, `INSERT OR REPLACE INTO surveys (`+surveyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, sv)
}

func (s *SQLiteStorage) write(ctx context.Context, stmt string, sv *models.Survey) error {
	if sv.UploadedAt.IsZero() {
		sv.UploadedAt = time.Now().UTC()
	}
	columns := sv.Columns
	if columns == nil {
		columns = []string{}
	}
	columnsJSON, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("failed to marshal columns: %w", err)
	}
	_, err = s.db.ExecContext(ctx, stmt,
		sv.ID, sv.Filename, sv.UploadedAt, sv.FileType, string(sv.Kind), string(columnsJSON),
		sv.RowCount, sv.SheetCount, sv.QuestionCount, sv.SourcePath,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSurvey(row rowScanner) (*models.Survey, error) {
	var sv models.Survey
	var kind, columnsJSON string
	if err := row.Scan(&sv.ID, &sv.Filename, &sv.UploadedAt, &sv.FileType, &kind, &columnsJSON,
		&sv.RowCount, &sv.SheetCount, &sv.QuestionCount, &sv.SourcePath); err != nil {
		return nil, err
	}
	sv.Kind = models.SurveyKind(kind)
	if err := json.Unmarshal([]byte(columnsJSON), &sv.Columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal columns: %w", err)
	}
	return &sv, nil
}

// GetSurvey returns a survey by ID.
func (s *SQLiteStorage) GetSurvey(ctx context.Context, id string) (*models.Survey, error) {
	sv, err := scanSurvey(s.db.QueryRowContext(ctx,
		`SELECT `+surveyColumns+` FROM surveys WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("survey %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return sv, nil
}

// DeleteSurvey removes a survey by ID.
func (s *SQLiteStorage) DeleteSurvey(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM surveys WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("survey %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListSurveys returns surveys with offset and limit, newest first.
func (s *SQLiteStorage) ListSurveys(ctx context.Context, offset, limit int) ([]*models.Survey, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+surveyColumns+` FROM surveys ORDER BY uploaded_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	surveys := make([]*models.Survey, 0)
	for rows.Next() {
		sv, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		surveys = append(surveys, sv)
	}
	return surveys, rows.Err()
}

// CountSurveys returns the total number of surveys.
func (s *SQLiteStorage) CountSurveys(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM surveys`).Scan(&count)
	return count, err
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
