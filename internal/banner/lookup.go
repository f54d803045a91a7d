package banner

import (
	"fmt"
	"strings"
)

// Banner returns the banner for sheet, or the first banner when sheet is empty.
func (r *ParseResult) Banner(sheet string) (*BannerRecord, error) {
	if sheet == "" {
		if first := r.Banners.First(); first != nil {
			return first, nil
		}
		return nil, ErrBannerNotFound
	}
	rec, ok := r.Banners.Get(sheet)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBannerNotFound, sheet)
	}
	return rec, nil
}

// Question returns the first question with id in the given banner
// (the first banner when sheet is empty).
func (r *ParseResult) Question(sheet, id string) (*QuestionRecord, error) {
	b, err := r.Banner(sheet)
	if err != nil {
		return nil, err
	}
	return b.Question(id)
}

// QuestionIDs lists the question ids of the first banner in order.
func (r *ParseResult) QuestionIDs() []string {
	first := r.Banners.First()
	if first == nil {
		return []string{}
	}
	return first.QuestionIDs()
}

// SearchQuestions matches term case-insensitively against the question text
// of the first banner.
func (r *ParseResult) SearchQuestions(term string) []QuestionSummary {
	first := r.Banners.First()
	if first == nil {
		return []QuestionSummary{}
	}
	return first.SearchQuestions(term)
}

// Question returns the first question with id.
func (b *BannerRecord) Question(id string) (*QuestionRecord, error) {
	for i := range b.Questions {
		if b.Questions[i].ID == id {
			return &b.Questions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
}

// QuestionIDs lists question ids in order, including INDICES when present.
func (b *BannerRecord) QuestionIDs() []string {
	ids := make([]string, 0, len(b.Questions))
	for _, q := range b.Questions {
		ids = append(ids, q.ID)
	}
	return ids
}

// SearchQuestions returns the questions whose text contains term, ignoring case.
func (b *BannerRecord) SearchQuestions(term string) []QuestionSummary {
	term = strings.ToLower(term)
	out := make([]QuestionSummary, 0)
	for _, q := range b.Questions {
		if strings.Contains(strings.ToLower(q.Text), term) {
			out = append(out, QuestionSummary{ID: q.ID, Text: q.Text})
		}
	}
	return out
}
