// Package errors provides coded errors for the pypigraph CLI and HTTP API.
//
// Library packages return plain wrapped errors with package sentinels. The
// command layer and the HTTP handlers translate them into an [Error] whose
// [Code] is stable and machine-readable:
//
//	err := errors.Wrap(errors.ErrCodeSnapshotFailed, cause, "list %s", baseURL)
//	if errors.Is(err, errors.ErrCodeSnapshotFailed) {
//	    // registry unreachable, nothing was written
//	}
//
// # Error Codes
//
//   - INVALID_*: bad input (configuration, package names, formats)
//   - *_NOT_FOUND: missing records or files
//   - *_FAILED: a stage of a pass or an export aborted
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

const (
	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidConfig  Code = "INVALID_CONFIG"
	ErrCodeInvalidPackage Code = "INVALID_PACKAGE"
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"

	// Resource not found errors
	ErrCodePackageNotFound Code = "PACKAGE_NOT_FOUND"
	ErrCodeFileNotFound    Code = "FILE_NOT_FOUND"

	// Pass and export failures
	ErrCodeSnapshotFailed   Code = "SNAPSHOT_FAILED"
	ErrCodeStoreOpenFailed  Code = "STORE_OPEN_FAILED"
	ErrCodeStoreWriteFailed Code = "STORE_WRITE_FAILED"
	ErrCodeExportFailed     Code = "EXPORT_FAILED"
	ErrCodeSyncInProgress   Code = "SYNC_IN_PROGRESS"

	ErrCodeInterrupted Code = "INTERRUPTED"
	ErrCodeInternal    Code = "INTERNAL_ERROR"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an Error around cause. A nil cause yields nil.
func Wrap(code Code, cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether the first *Error in err's chain has the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from err, or "" if it carries none.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message without the code prefix. For the CLI the
// cause is appended, since it usually names the failing host or file.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return e.Message + ": " + e.Cause.Error()
		}
		return e.Message
	}
	return err.Error()
}
