package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrTypeSchema      ErrorType = "schema"
	ErrTypeMigration   ErrorType = "migration"
	ErrTypeSeed        ErrorType = "seed"
	ErrTypeConnection  ErrorType = "connection"
	ErrTypeTransaction ErrorType = "transaction"
	ErrTypeDatabase    ErrorType = "database"
	ErrTypeValidation  ErrorType = "validation"
	ErrTypeNotFound    ErrorType = "not_found"
	ErrTypeConfig      ErrorType = "config"
	ErrTypeFileSystem  ErrorType = "filesystem"
	ErrTypeInternal    ErrorType = "internal"
)

// Error represents a structured error with type and optional suggestions
type Error struct {
	Type        ErrorType
	Message     string
	Cause       error
	Suggestions []string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSuggestion adds a suggestion for resolving the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// New creates a new structured error
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new structured error with formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsType reports whether any structured error in the chain has the given type.
// A migration error wrapping a schema error matches both types.
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var structErr *Error
		if !errors.As(err, &structErr) {
			return false
		}

		if structErr.Type == errType {
			return true
		}

		err = structErr.Cause
	}

	return false
}

// GetType returns the outermost structured error type
func GetType(err error) ErrorType {
	var structErr *Error
	if errors.As(err, &structErr) {
		return structErr.Type
	}

	return ErrTypeInternal
}

// NewConfigError creates a configuration error with suggestions
func NewConfigError(message, field string) *Error {
	err := New(ErrTypeConfig, message)
	if field != "" {
		err.Message = fmt.Sprintf("%s (field: %s)", message, field)
	}

	return err.
		WithSuggestion("Check your configuration file syntax").
		WithSuggestion("Run with --help to see valid configuration options")
}

// NewNotOpenError is returned by any operation attempted on a closed connection
func NewNotOpenError() *Error {
	return New(ErrTypeConnection, "database connection is not open").
		WithSuggestion("Open a new database; a closed one cannot be reused")
}

// SuggestionsOf collects the suggestions of every structured error in the chain
func SuggestionsOf(err error) []string {
	var suggestions []string

	for err != nil {
		var structErr *Error
		if !errors.As(err, &structErr) {
			break
		}

		suggestions = append(suggestions, structErr.Suggestions...)
		err = structErr.Cause
	}

	return suggestions
}
