// Package errors provides structured error types for qrraster.
//
// Every failure that leaves a render call carries a machine-readable
// [Code], so callers can tell a bad matrix apart from a full disk or a
// broken container stream without string matching.
//
// # Error Codes
//
//   - INVALID_*: caller supplied a matrix, parameter or format that
//     violates a precondition; reported before any row is emitted
//   - OUT_OF_MEMORY: a buffer could not be allocated or grown
//   - SINK_WRITE: the destination refused bytes
//   - ENCODER: the image container encoder rejected the row stream
//   - INTERNAL_ERROR: unexpected internal failure
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "scale must be positive, got %d", scale)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeSinkWrite, origErr, "write row %d", y)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeInvalidLevel  Code = "INVALID_LEVEL"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Resource errors
	ErrCodeOutOfMemory Code = "OUT_OF_MEMORY"

	// Output errors
	ErrCodeSinkWrite Code = "SINK_WRITE"
	ErrCodeEncoder   Code = "ENCODER"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
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

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// Only the outermost *Error in the chain is consulted, so a SINK_WRITE
// wrapping an ENCODER error reports SINK_WRITE.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Ensure wraps err with code unless err already carries a code,
// in which case it is returned unchanged. A nil err yields nil.
func Ensure(code Code, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if GetCode(err) != "" {
		return err
	}
	return Wrap(code, err, format, args...)
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
