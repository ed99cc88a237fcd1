// Package errs defines the error taxonomy shared by the scrapers and the store.
package errs

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrTimeout       = errors.New("timed out waiting for selector")
	ErrNotNavigated  = errors.New("session has no loaded page")
	ErrSessionClosed = errors.New("session is closed")
	ErrBrowser       = errors.New("browser failure")
)

// Code classifies an Error
type Code string

const (
	CodeTransient           Code = "TRANSIENT_SCRAPE"
	CodeTimeout             Code = "TIMEOUT"
	CodeMissingPrerequisite Code = "MISSING_PREREQUISITE"
	CodeStorageIO           Code = "STORAGE_IO"
	CodeValidation          Code = "VALIDATION"
)

// Error wraps an underlying failure with a code and retry hint
type Error struct {
	Code       Code
	Message    string
	Underlying error
	Retry      bool
	Details    map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches another *Error by code, otherwise defers to the wrapped error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newError(code Code, retry bool, message string, err error) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Underlying: err,
		Retry:      retry,
	}
}

// Transient marks a navigation or network failure that is worth retrying
func Transient(message string, err error) *Error {
	return newError(CodeTransient, true, message, err)
}

// Timeout marks a selector wait that ran out of budget
func Timeout(selector string, err error) *Error {
	if err == nil {
		err = ErrTimeout
	}
	return newError(CodeTimeout, true, fmt.Sprintf("waiting for %q", selector), err).
		WithDetail("selector", selector)
}

// MissingPrerequisite reports that an operation depends on data not yet stored
func MissingPrerequisite(message string) *Error {
	return newError(CodeMissingPrerequisite, false, message, nil)
}

// StorageIO wraps a filesystem failure other than plain absence
func StorageIO(op, path string, err error) *Error {
	return newError(CodeStorageIO, false, fmt.Sprintf("%s %s", op, path), err).
		WithDetail("path", path)
}

// Validation reports bad caller input
func Validation(format string, args ...interface{}) *Error {
	return newError(CodeValidation, false, fmt.Sprintf(format, args...), nil)
}

// HasCode reports whether any error in err's chain carries code
func HasCode(err error, code Code) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Underlying
	}
	return false
}

// IsRetryable reports whether err should be retried. Errors without a
// classification are assumed transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Retry
	}
	return true
}
