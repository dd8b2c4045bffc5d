package machine

import (
	"errors"
	"fmt"
)

// ParseErrorCode categorizes instruction-file failures.
type ParseErrorCode string

const (
	// ErrCodeBadHeader indicates a missing or malformed "STATES: N" line.
	ErrCodeBadHeader ParseErrorCode = "BAD_HEADER"

	// ErrCodeBadLine indicates an operation line that does not match the grammar.
	ErrCodeBadLine ParseErrorCode = "BAD_LINE"

	// ErrCodeTruncated indicates fewer than N*2 operation lines.
	ErrCodeTruncated ParseErrorCode = "TRUNCATED"

	// ErrCodeUnreadable indicates the instruction source could not be read.
	ErrCodeUnreadable ParseErrorCode = "UNREADABLE"
)

// Sentinels matched by ParseError.Is.
var (
	ErrBadHeader  = errors.New("bad header")
	ErrBadLine    = errors.New("bad instruction line")
	ErrTruncated  = errors.New("truncated instruction file")
	ErrUnreadable = errors.New("unreadable instruction file")
)

// ParseError reports why an instruction file was rejected.
type ParseError struct {
	Code ParseErrorCode

	// File is the source name, empty for anonymous readers.
	File string

	// Line is the 1-based line number, 0 when not tied to a line.
	Line int

	// Text is the offending line as read.
	Text string

	Message string

	// Err is the underlying I/O error for ErrCodeUnreadable.
	Err error
}

func (e *ParseError) Error() string {
	where := e.File
	if where == "" {
		where = "instructions"
	}
	if e.Line > 0 {
		where = fmt.Sprintf("%s:%d", where, e.Line)
	}
	msg := fmt.Sprintf("%s: %s", where, e.Message)
	if e.Text != "" {
		msg += fmt.Sprintf(" (%q)", e.Text)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's code.
func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrBadHeader:
		return e.Code == ErrCodeBadHeader
	case ErrBadLine:
		return e.Code == ErrCodeBadLine
	case ErrTruncated:
		return e.Code == ErrCodeTruncated
	case ErrUnreadable:
		return e.Code == ErrCodeUnreadable
	}
	return false
}

// IsParseError returns true if err wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
