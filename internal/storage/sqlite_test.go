package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/crosstab/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "db", "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorage_CRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	sv := &models.Survey{
		ID:            "ab12cd34",
		Filename:      "wave1.xlsx",
		FileType:      "xlsx",
		Kind:          models.KindBanner,
		Columns:       []string{"TOTAL", "North", "South"},
		RowCount:      12,
		SheetCount:    2,
		QuestionCount: 4,
	}
	if err := store.CreateSurvey(ctx, sv); err != nil {
		t.Fatal(err)
	}
	if sv.UploadedAt.IsZero() {
		t.Error("UploadedAt should be set")
	}

	got, err := store.GetSurvey(ctx, "ab12cd34")
	if err != nil {
		t.Fatal(err)
	}
	if got.Filename != "wave1.xlsx" || got.Kind != models.KindBanner || got.QuestionCount != 4 {
		t.Errorf("got %+v", got)
	}
	if len(got.Columns) != 3 || got.Columns[1] != "North" {
		t.Errorf("columns: got %v", got.Columns)
	}
	if !got.UploadedAt.Equal(sv.UploadedAt) {
		t.Errorf("uploaded_at: got %v, want %v", got.UploadedAt, sv.UploadedAt)
	}

	if err := store.CreateSurvey(ctx, sv); err == nil {
		t.Error("duplicate id should fail on create")
	}

	count, err := store.CountSurveys(ctx)
	if err != nil || count != 1 {
		t.Errorf("CountSurveys = %d, %v", count, err)
	}

	if err := store.DeleteSurvey(ctx, "ab12cd34"); err != nil {
		t.Fatal(err)
	}
	_, err = store.GetSurvey(ctx, "ab12cd34")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteSurvey(ctx, "ab12cd34"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_Upsert(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	sv := &models.Survey{ID: "w1", Filename: "a.csv", FileType: "csv", Kind: models.KindTabular, SourcePath: "/inbox/a.csv"}
	if err := store.UpsertSurvey(ctx, sv); err != nil {
		t.Fatal(err)
	}
	sv.RowCount = 99
	if err := store.UpsertSurvey(ctx, sv); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetSurvey(ctx, "w1")
	if err != nil {
		t.Fatal(err)
	}
	if got.RowCount != 99 || got.SourcePath != "/inbox/a.csv" {
		t.Errorf("got %+v", got)
	}
	if got.Columns == nil || len(got.Columns) != 0 {
		t.Errorf("nil columns should round-trip as empty: %v", got.Columns)
	}
}

func TestSQLiteStorage_ListNewestFirst(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		sv := &models.Survey{ID: id, Filename: id + ".csv", FileType: "csv", Kind: models.KindTabular,
			UploadedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := store.CreateSurvey(ctx, sv); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.ListSurveys(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].ID != "new" || list[2].ID != "old" {
		t.Errorf("unexpected order: %v %v %v", list[0].ID, list[1].ID, list[2].ID)
	}

	page, err := store.ListSurveys(ctx, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].ID != "mid" {
		t.Errorf("offset page: got %+v", page)
	}
}

func TestSQLiteStorage_ListEmpty(t *testing.T) {
	list, err := newTestStorage(t).ListSurveys(context.Background(), 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("expected empty non-nil list, got %v", list)
	}
}

var _ Storage = (*SQLiteStorage)(nil)
