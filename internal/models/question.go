package models

import "fmt"

// QuestionDoc is one banner question as stored in the keyword index.
type QuestionDoc struct {
	SurveyID   string `json:"survey_id"`
	Filename   string `json:"filename"`
	Sheet      string `json:"sheet"`
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
	// Labels are the response labels joined with spaces.
	Labels string `json:"labels"`
}

// QuestionDocID returns the index id of the question at position pos of a
// banner. Question ids may repeat within a sheet, so the position is used.
func QuestionDocID(surveyID, sheet string, pos int) string {
	return fmt.Sprintf("%s/%s/%d", surveyID, sheet, pos)
}
