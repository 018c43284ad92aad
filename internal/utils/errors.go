package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures for the HTTP boundary
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindValidation   ErrorKind = "validation"
	KindBusinessRule ErrorKind = "business_rule"
	KindUnexpected   ErrorKind = "unexpected"
)

// AppError is the error type returned by services
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError of the same kind, so errors.Is(err, ErrNotFound) works
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is checks
var (
	ErrNotFound     = &AppError{Kind: KindNotFound}
	ErrValidation   = &AppError{Kind: KindValidation}
	ErrBusinessRule = &AppError{Kind: KindBusinessRule}
	ErrUnexpected   = &AppError{Kind: KindUnexpected}
)

func NotFound(format string, args ...interface{}) error {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) error {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func BusinessRule(format string, args ...interface{}) error {
	return &AppError{Kind: KindBusinessRule, Message: fmt.Sprintf(format, args...)}
}

// Unexpected wraps an infrastructure failure. An error that is already an
// AppError is returned unchanged.
func Unexpected(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return &AppError{Kind: KindUnexpected, Message: message, Err: err}
}

// KindOf returns the kind of err, defaulting to KindUnexpected
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnexpected
}
