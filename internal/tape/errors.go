package tape

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes tape file failures.
type ErrorCode string

const (
	// ErrCodeNotOpenable indicates the tape file could not be opened.
	ErrCodeNotOpenable ErrorCode = "NOT_OPENABLE"

	// ErrCodeUnreadable indicates a read from the tape file failed.
	ErrCodeUnreadable ErrorCode = "UNREADABLE"

	// ErrCodeCorrupt indicates a tape byte other than '0' or '1'.
	ErrCodeCorrupt ErrorCode = "CORRUPT_TAPE"

	// ErrCodeWriteFailed indicates a window write-back failed.
	ErrCodeWriteFailed ErrorCode = "WRITE_FAILED"

	// ErrCodeShiftFailed indicates relocating the file for leftward growth failed.
	ErrCodeShiftFailed ErrorCode = "SHIFT_FAILED"
)

// Sentinels matched by Error.Is.
var (
	ErrNotOpenable = errors.New("tape file not openable")
	ErrUnreadable  = errors.New("tape file unreadable")
	ErrCorrupt     = errors.New("corrupt tape")
	ErrWriteFailed = errors.New("tape write failed")
	ErrShiftFailed = errors.New("tape shift failed")
)

// Error reports a tape file failure.
type Error struct {
	Code ErrorCode
	Path string

	// Offset is the file byte offset involved, -1 when not applicable.
	Offset int64

	// Char is the offending byte for ErrCodeCorrupt.
	Char byte

	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Code == ErrCodeCorrupt:
		return fmt.Sprintf("%s: unrecognised character %q in tape at byte %d", e.Path, e.Char, e.Offset)
	case e.Err != nil && e.Offset >= 0:
		return fmt.Sprintf("%s: %s at byte %d: %v", e.Path, e.sentinel(), e.Offset, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Path, e.sentinel(), e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.sentinel())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's code.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

func (e *Error) sentinel() error {
	switch e.Code {
	case ErrCodeNotOpenable:
		return ErrNotOpenable
	case ErrCodeUnreadable:
		return ErrUnreadable
	case ErrCodeCorrupt:
		return ErrCorrupt
	case ErrCodeWriteFailed:
		return ErrWriteFailed
	case ErrCodeShiftFailed:
		return ErrShiftFailed
	}
	return errors.New(string(e.Code))
}

// IsCorrupt returns true if err wraps a corrupt-tape Error.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorrupt)
}

// IsError returns true if err wraps a tape Error.
func IsError(err error) bool {
	var te *Error
	return errors.As(err, &te)
}
