package banner

import (
	"errors"
	"fmt"
)

var (
	// ErrBannerNotFound is returned when a lookup names a sheet that was not parsed.
	ErrBannerNotFound = errors.New("banner not found")
	// ErrQuestionNotFound is returned when no question has the requested id.
	ErrQuestionNotFound = errors.New("question not found")
)

// ParseError reports a failure to open a workbook or read one of its sheets.
type ParseError struct {
	Sheet string // empty for workbook-level failures
	Op    string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Sheet, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
