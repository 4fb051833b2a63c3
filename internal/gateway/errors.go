package gateway

import (
	"errors"
	"fmt"
)

// Code classifies a backend failure.
type Code string

const (
	CodeInvalidCredentials Code = "invalid_credentials"
	CodeEmailNotConfirmed  Code = "email_not_confirmed"
	CodeRateLimited        Code = "rate_limited"
	CodeUserExists         Code = "user_already_exists"
	CodeWeakPassword       Code = "weak_password"
	CodeNotFound           Code = "not_found"
	CodeUniqueViolation    Code = "unique_violation"
	CodeConflict           Code = "conflict"
	CodeUnauthenticated    Code = "unauthenticated"
	CodeParse              Code = "parse_error"
	CodeTransport          Code = "transport"
	CodeUnknown            Code = "unknown"
)

// Error is the single failure type returned across the gateway boundary.
type Error struct {
	Code    Code
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so callers can compare against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials}
	ErrEmailNotConfirmed  = &Error{Code: CodeEmailNotConfirmed}
	ErrRateLimited        = &Error{Code: CodeRateLimited}
	ErrUserExists         = &Error{Code: CodeUserExists}
	ErrWeakPassword       = &Error{Code: CodeWeakPassword}
	ErrNotFound           = &Error{Code: CodeNotFound}
	ErrUniqueViolation    = &Error{Code: CodeUniqueViolation}
	ErrConflict           = &Error{Code: CodeConflict}
	ErrUnauthenticated    = &Error{Code: CodeUnauthenticated}
	ErrParse              = &Error{Code: CodeParse}
)

// NewError builds a gateway error with a message.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap converts any error into a gateway error, keeping an existing *Error as is.
func Wrap(code Code, err error) error {
	if err == nil {
		return nil
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return err
	}
	return &Error{Code: code, Message: err.Error(), Err: err}
}

// CodeOf returns the code of err, CodeUnknown for foreign errors and "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Code
	}
	return CodeUnknown
}

// MessageOf returns the backend's raw message for err.
func MessageOf(err error) string {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		if gwErr.Message != "" {
			return gwErr.Message
		}
		return string(gwErr.Code)
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
