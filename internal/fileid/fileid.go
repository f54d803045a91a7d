// Package fileid provides deterministic survey ids for files ingested by path.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// Length is the number of characters in a survey id.
const Length = 8

// SurveyID returns a stable survey id for the given absolute path.
// Same path always yields the same id, so re-ingesting a file replaces its survey.
func SurveyID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])[:Length]
}
