package keyword

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/crosstab/internal/models"
)

const (
	fieldSurveyID   = "survey_id"
	fieldFilename   = "filename"
	fieldSheet      = "sheet"
	fieldQuestionID = "question_id"
	fieldText       = "text"
	fieldLabels     = "labels"

	deletePageSize = 500
)

var storedFields = []string{fieldSurveyID, fieldFilename, fieldSheet, fieldQuestionID, fieldText, fieldLabels}

// BleveIndex implements QuestionIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemBleveIndex creates an in-memory index.
func NewMemBleveIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so "recommend"
	// does not also match "recommendation".
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(fieldText, textFieldMapping)
	docMapping.AddFieldMappingsAt(fieldLabels, textFieldMapping)
	for _, f := range []string{fieldSurveyID, fieldFilename, fieldSheet, fieldQuestionID} {
		docMapping.AddFieldMappingsAt(f, bleve.NewKeywordFieldMapping())
	}
	im.AddDocumentMapping("question", docMapping)
	im.DefaultType = "question"
	im.DefaultMapping = docMapping
	return im
}

// IndexBatch indexes docs in a single batch.
func (b *BleveIndex) IndexBatch(ctx context.Context, docs map[string]*models.QuestionDoc) error {
	batch := b.index.NewBatch()
	for id, doc := range docs {
		if err := batch.Index(id, doc); err != nil {
			return fmt.Errorf("batch index %s: %w", id, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	return nil
}

// Search matches query against question text and response labels and
// returns up to limit results, best first.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*QuestionResult, error) {
	textBoost := 1.0
	fuzzyEnabled := false
	fuzziness := 2
	surveyID := ""
	if opts != nil {
		if opts.TextBoost > 0 {
			textBoost = opts.TextBoost
		}
		fuzzyEnabled = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
		surveyID = opts.SurveyID
	}

	var textQuery, labelQuery blevequery.Query
	if fuzzyEnabled {
		textQuery = buildFuzzyQuery(query, fuzziness, fieldText, textBoost)
		labelQuery = buildFuzzyQuery(query, fuzziness, fieldLabels, 1)
	} else {
		tq := bleve.NewMatchQuery(query)
		tq.SetField(fieldText)
		tq.SetBoost(textBoost)
		textQuery = tq
		lq := bleve.NewMatchQuery(query)
		lq.SetField(fieldLabels)
		labelQuery = lq
	}
	var q blevequery.Query = bleve.NewDisjunctionQuery(textQuery, labelQuery)
	if surveyID != "" {
		sq := bleve.NewTermQuery(surveyID)
		sq.SetField(fieldSurveyID)
		q = bleve.NewConjunctionQuery(q, sq)
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = storedFields
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*QuestionResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &QuestionResult{ID: hit.ID, Score: hit.Score, Doc: docFromHit(hit)}
	}
	return out, nil
}

func docFromHit(hit *search.DocumentMatch) models.QuestionDoc {
	str := func(field string) string {
		if s, ok := hit.Fields[field].(string); ok {
			return s
		}
		return ""
	}
	return models.QuestionDoc{
		SurveyID:   str(fieldSurveyID),
		Filename:   str(fieldFilename),
		Sheet:      str(fieldSheet),
		QuestionID: str(fieldQuestionID),
		Text:       str(fieldText),
		Labels:     str(fieldLabels),
	}
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries, one per query term, restricted to field.
func buildFuzzyQuery(queryStr string, fuzziness int, field string, boost float64) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		mq.SetField(field)
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		fq.SetBoost(boost)
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// DeleteSurvey removes all questions whose survey_id is surveyID.
func (b *BleveIndex) DeleteSurvey(ctx context.Context, surveyID string) (int, error) {
	removed := 0
	for {
		q := bleve.NewTermQuery(surveyID)
		q.SetField(fieldSurveyID)
		req := bleve.NewSearchRequest(q)
		req.Size = deletePageSize
		results, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return removed, fmt.Errorf("Bleve search failed: %w", err)
		}
		if len(results.Hits) == 0 {
			return removed, nil
		}
		batch := b.index.NewBatch()
		for _, hit := range results.Hits {
			batch.Delete(hit.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return removed, fmt.Errorf("Bleve batch delete failed: %w", err)
		}
		removed += len(results.Hits)
	}
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of indexed questions.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Terms returns every term of the text and labels fields with the number of
// documents that contain it in either field.
func (b *BleveIndex) Terms() (map[string]int, error) {
	terms := make(map[string]int)
	for _, field := range []string{fieldText, fieldLabels} {
		dict, err := b.index.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("field dict %s: %w", field, err)
		}
		for {
			entry, err := dict.Next()
			if err != nil || entry == nil {
				break
			}
			terms[entry.Term] += int(entry.Count)
		}
		_ = dict.Close()
	}
	return terms, nil
}
