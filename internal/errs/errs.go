package errs

import (
	"errors"
)

// Code is an application error code.
type Code string

const (
	InvalidArgument Code = "invalid_argument"
	AssertionFailed Code = "assertion_failed"
	NotFound        Code = "not_found"
	Unavailable     Code = "unavailable"
	Internal        Code = "internal"
)

// Process exit codes reported by the ghflow CLI.
const (
	ExitOK            = 0
	ExitAssertion     = 1
	ExitConfiguration = 2
	ExitUnavailable   = 3
	ExitInternal      = 4
)

// Error is a coded application error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" && e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// CodeOf returns the error code, defaulting to internal.
func CodeOf(err error) Code {
	if err == nil {
		return Internal
	}
	var coded *Error
	if errors.As(err, &coded) {
		if coded.Code == "" {
			return Internal
		}
		return coded.Code
	}
	return Internal
}

// MessageOf returns the outermost coded message, or "internal error" for
// untyped errors.
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// ExitCode maps an error code to a process exit code.
func ExitCode(code Code) int {
	switch code {
	case AssertionFailed, NotFound:
		return ExitAssertion
	case InvalidArgument:
		return ExitConfiguration
	case Unavailable:
		return ExitUnavailable
	default:
		return ExitInternal
	}
}

// ExitCodeOf returns ExitOK for a nil error and the mapped exit code otherwise.
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitOK
	}
	return ExitCode(CodeOf(err))
}
