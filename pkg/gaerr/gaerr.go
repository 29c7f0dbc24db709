// Package gaerr defines the structured error taxonomy shared by every
// fallible operation in the audio pipeline.
package gaerr

import "fmt"

// Code is a tagged error classification. Categories are bit-field bases
// so callers can classify an error with a single >= comparison against
// CategoryMis, CategorySys, or CategoryFormat.
type Code int

const (
	Ok Code = 0
	// Generic is an unspecified error.
	Generic Code = 1
	// Internal means the pipeline is in an inconsistent state; callers
	// should attempt to continue operating as consistently as possible.
	Internal Code = 2

	// CategoryMis groups errors that result from API misuse.
	CategoryMis Code = 1 << 30
	// MisParam: a parameter was invalid.
	MisParam = CategoryMis
	// MisUnsup: the operation is not supported on the given object
	// (e.g. seeking an unseekable data source).
	MisUnsup = CategoryMis + 1

	// CategorySys groups errors from interaction with the system.
	CategorySys Code = 1 << 29
	// SysIO: a required I/O operation failed.
	SysIO = CategorySys
	// SysMem: allocation failed.
	SysMem = CategorySys + 1
	// SysLib: an unspecified error from a necessary system library.
	SysLib = CategorySys + 2
	// SysRun: an output buffer under/overflowed.
	SysRun = CategorySys + 3

	// CategoryFormat groups errors from malformed external data.
	CategoryFormat Code = 1 << 28
	// Format: a container or stream was malformed.
	Format = CategoryFormat
)

// IsMis reports whether code falls in the API-misuse category.
func IsMis(c Code) bool { return c >= CategoryMis }

// IsSys reports whether code falls in the system-interaction category.
func IsSys(c Code) bool { return c >= CategorySys && c < CategoryMis }

// IsFormat reports whether code falls in the malformed-data category.
func IsFormat(c Code) bool { return c >= CategoryFormat && c < CategorySys }

func (c Code) String() string {
	switch c {
	case Ok:
		return "ok"
	case Generic:
		return "generic error"
	case Internal:
		return "internal error"
	case MisParam:
		return "invalid parameter"
	case MisUnsup:
		return "unsupported operation"
	case SysIO:
		return "I/O error"
	case SysMem:
		return "allocation failure"
	case SysLib:
		return "system library error"
	case SysRun:
		return "buffer under/overrun"
	case Format:
		return "malformed data"
	default:
		return fmt.Sprintf("gaerr.Code(%d)", int(c))
	}
}

// Error wraps a Code with a message and an optional underlying cause,
// supporting errors.Is/errors.As against both the Code and the cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Code, letting
// callers test a code with errors.Is(err, gaerr.New(gaerr.MisUnsup, ""))
// even though Code isn't itself an error type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
