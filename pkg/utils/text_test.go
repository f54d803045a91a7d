package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
}

func TestTruncate_runes(t *testing.T) {
	if got := Truncate("日本語テキスト", 3); got != "日本語..." {
		t.Errorf("got %s", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"report.xlsx", "report.xlsx"},
		{"My Survey 2024.xlsx", "My_Survey_2024.xlsx"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\wave 3.csv`, "wave_3.csv"},
		{"résumé.csv", "rsum.csv"},
		{"...", "upload"},
		{"", "upload"},
		{".hidden.xlsx", "hidden.xlsx"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
