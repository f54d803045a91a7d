package banner

import "strings"

// DisplayName summarizes the distinct demographic categories of a banner in
// first-appearance order. Up to three are joined with " / "; beyond that the
// first three are followed by " + more".
func DisplayName(demos []DemographicColumn) string {
	if len(demos) == 0 {
		return totalOnlyName
	}
	seen := make(map[string]bool, len(demos))
	var cats []string
	for _, d := range demos {
		if !seen[d.Category] {
			seen[d.Category] = true
			cats = append(cats, d.Category)
		}
	}
	if len(cats) <= maxDisplayParts {
		return strings.Join(cats, displaySeparator)
	}
	return strings.Join(cats[:maxDisplayParts], displaySeparator) + moreSuffix
}

func assemble(sheet string, demos []DemographicColumn, labels []string, questions []QuestionRecord) *BannerRecord {
	if questions == nil {
		questions = []QuestionRecord{}
	}
	return &BannerRecord{
		SheetName:      sheet,
		DisplayName:    DisplayName(demos),
		Demographics:   demos,
		ColumnLabels:   labels,
		Questions:      questions,
		TotalQuestions: len(questions),
	}
}
