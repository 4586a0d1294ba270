// Package storeerr provides the structured error taxonomy used across the
// installation directory manager, in the same shape the teacher project
// used for its own error codes: a stable Code plus a human message plus an
// optional wrapped cause.
package storeerr

import (
	"errors"
	"fmt"
)

// Code is a stable, testable error classification. Strings are not a
// stability promise (spec §6); the Code is.
type Code string

const (
	NotFound          Code = "NOT_FOUND"
	NotDeployed       Code = "NOT_DEPLOYED"
	AlreadyDeployed   Code = "ALREADY_DEPLOYED"
	AlreadyUndeployed Code = "ALREADY_UNDEPLOYED"
	ParseError        Code = "PARSE_ERROR"
	PolicyViolation   Code = "POLICY_VIOLATION"
	IOError           Code = "IO_ERROR"
	Unsupported       Code = "UNSUPPORTED"
	Cancelled         Code = "CANCELLED"
)

// Error is a structured error carrying a stable Code and optional details.
type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New creates a new Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err, returning nil if err is nil.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Wrapped: err}
}

// Wrapf wraps err with a formatted message, returning nil if err is nil.
func Wrapf(err error, code Code, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

// Prefix re-wraps err (if it is an *Error) with an operation-context
// prefix prepended to its message, per spec §7's propagation policy
// ("While pulling {ref} from {remote}").
func Prefix(err error, context string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &Error{
			Code:    e.Code,
			Message: context + ": " + e.Message,
			Details: e.Details,
			Wrapped: e.Wrapped,
		}
	}
	return fmt.Errorf("%s: %w", context, err)
}

// WithDetail attaches a detail key/value and returns the receiver.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsCode reports whether err carries the given Code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode returns err's Code, or "" if err is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
