package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/crosstab/internal/models"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func seed(t *testing.T, idx *BleveIndex) {
	t.Helper()
	docs := map[string]*models.QuestionDoc{
		"s1/B1/0": {SurveyID: "s1", Filename: "wave1.xlsx", Sheet: "B1", QuestionID: "Q1",
			Text: "Q1. How satisfied are you with the service?", Labels: "Very satisfied Satisfied Dissatisfied"},
		"s1/B1/1": {SurveyID: "s1", Filename: "wave1.xlsx", Sheet: "B1", QuestionID: "Q2",
			Text: "Q2. Would you recommend us to a friend?", Labels: "Yes No"},
		"s2/B1/0": {SurveyID: "s2", Filename: "wave2.xlsx", Sheet: "B1", QuestionID: "Q7",
			Text: "Q7. Which region do you live in?", Labels: "North South satisfied"},
	}
	if err := idx.IndexBatch(context.Background(), docs); err != nil {
		t.Fatalf("IndexBatch: %v", err)
	}
}

func TestBleveIndex_SearchFindsQuestionText(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	results, err := idx.Search(context.Background(), "recommend", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].ID != "s1/B1/1" || results[0].Doc.QuestionID != "Q2" || results[0].Doc.Filename != "wave1.xlsx" {
		t.Errorf("unexpected hit: %+v", results[0])
	}
}

func TestBleveIndex_TextBoostRanksQuestionTextFirst(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	results, err := idx.Search(context.Background(), "satisfied", 10, &SearchOptions{TextBoost: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Doc.QuestionID != "Q1" {
		t.Errorf("question text match should rank first, got %s", results[0].Doc.QuestionID)
	}
}

func TestBleveIndex_SurveyFilter(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	results, err := idx.Search(context.Background(), "satisfied", 10, &SearchOptions{SurveyID: "s2"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Doc.SurveyID != "s2" {
		t.Errorf("expected only survey s2, got %+v", results)
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)
	ctx := context.Background()

	exact, err := idx.Search(ctx, "recomend", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(exact) != 0 {
		t.Errorf("exact search should miss a typo, got %d", len(exact))
	}
	fuzzy, err := idx.Search(ctx, "recomend", 10, &SearchOptions{FuzzyEnabled: true, Fuzziness: 1})
	if err != nil {
		t.Fatalf("Search fuzzy: %v", err)
	}
	if len(fuzzy) == 0 || fuzzy[0].Doc.QuestionID != "Q2" {
		t.Errorf("fuzzy search should find Q2, got %+v", fuzzy)
	}
}

func TestBleveIndex_DeleteSurvey(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)
	ctx := context.Background()

	n, err := idx.DeleteSurvey(ctx, "s1")
	if err != nil {
		t.Fatalf("DeleteSurvey: %v", err)
	}
	if n != 2 {
		t.Errorf("removed %d, want 2", n)
	}
	count, _ := idx.DocCount()
	if count != 1 {
		t.Errorf("DocCount = %d, want 1", count)
	}
	if n, _ := idx.DeleteSurvey(ctx, "missing"); n != 0 {
		t.Errorf("deleting unknown survey removed %d", n)
	}
}

func TestBleveIndex_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	seed(t, idx)
	_ = idx.Close()

	idx, err = NewBleveIndex(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	if count, _ := idx.DocCount(); count != 3 {
		t.Errorf("DocCount after reopen = %d, want 3", count)
	}
}

func TestBleveIndex_TermsFeedSuggester(t *testing.T) {
	idx := newTestIndex(t)
	seed(t, idx)

	terms, err := idx.Terms()
	if err != nil {
		t.Fatalf("Terms: %v", err)
	}
	if terms["satisfied"] < 2 {
		t.Errorf("satisfied should appear in at least 2 docs, got %d", terms["satisfied"])
	}
	got, err := NewSuggester(idx).Suggest("regoin")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "region" {
		t.Errorf("Suggest = %v, want [region]", got)
	}
}

var _ QuestionIndex = (*BleveIndex)(nil)
var _ TermDictionary = (*BleveIndex)(nil)
