package banner

import (
	"github.com/hyperjump/crosstab/internal/workbook"
)

// LocateQuestions returns one record per row whose column-0 text starts a
// question ("Q<digits>."), in row order. Responses are not filled.
func (h Heuristics) LocateQuestions(g workbook.Grid) []QuestionRecord {
	var out []QuestionRecord
	for r := 0; r < g.Rows(); r++ {
		if text, ok := questionHeading(g.Cell(r, 0)); ok {
			out = append(out, QuestionRecord{
				ID:        questionID.FindString(text),
				Text:      text,
				SourceRow: r,
			})
		}
	}
	return out
}

// questionHeading returns the trimmed text of c when it is a text cell that
// starts a question.
func questionHeading(c workbook.Cell) (string, bool) {
	if !c.IsText() {
		return "", false
	}
	text := cellText(c)
	return text, questionStart.MatchString(text)
}
