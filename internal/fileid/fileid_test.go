package fileid

import (
	"path/filepath"
	"testing"
)

func TestSurveyID(t *testing.T) {
	// Deterministic: same path gives same id
	id1 := SurveyID("/inbox/wave1.xlsx")
	id2 := SurveyID("/inbox/wave1.xlsx")
	if id1 != id2 {
		t.Errorf("same path should give same id: %q vs %q", id1, id2)
	}
	if len(id1) != Length {
		t.Errorf("id length = %d, want %d: %q", len(id1), Length, id1)
	}
}

func TestSurveyID_differentPaths(t *testing.T) {
	if SurveyID("/inbox/wave1.xlsx") == SurveyID("/inbox/wave2.xlsx") {
		t.Error("different paths should give different ids")
	}
}

func TestSurveyID_normalized(t *testing.T) {
	id1 := SurveyID("/inbox/wave1.xlsx")
	id2 := SurveyID("/inbox/./wave1.xlsx")
	id3 := SurveyID("/inbox/sub/../wave1.xlsx")
	if id1 != id2 || id1 != id3 {
		t.Errorf("equivalent paths should match: %q %q %q", id1, id2, id3)
	}
}

func TestSurveyID_hex(t *testing.T) {
	abs, _ := filepath.Abs("report.xlsx")
	for _, r := range SurveyID(abs) {
		if !('0' <= r && r <= '9' || 'a' <= r && r <= 'f') {
			t.Fatalf("id should be lowercase hex: %q", SurveyID(abs))
		}
	}
}
