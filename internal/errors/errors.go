// Package errors provides a lightweight structured error type (TexError)
// for category-based classification of build failures in the orchestrator and CLI.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCategory represents the category of a TexError for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Build decision and toolchain errors
	CategoryBuilder    ErrorCategory = "builder"
	CategoryProcess    ErrorCategory = "process"
	CategoryExecutable ErrorCategory = "executable"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Capability and infrastructure errors
	CategoryUnsupported ErrorCategory = "unsupported"
	CategoryStorage     ErrorCategory = "storage"
	CategoryInternal    ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// TexError is a structured error with category, severity and context
type TexError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for TexError
type ContextFields map[string]any

// Error implements the error interface
func (e *TexError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *TexError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *TexError) WithContext(key string, value any) *TexError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new TexError
func New(category ErrorCategory, severity ErrorSeverity, message string) *TexError {
	return &TexError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new TexError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *TexError {
	return &TexError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As returns the first TexError in err's chain.
func As(err error) (*TexError, bool) {
	var te *TexError
	if stdErrors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsCategory checks if an error (or anything it wraps) belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if te, ok := As(err); ok {
		return te.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a TexError
func GetCategory(err error) ErrorCategory {
	if te, ok := As(err); ok {
		return te.Category
	}
	return CategoryInternal
}

// IsUnsupported reports whether err signals an operation that is not
// available, as opposed to one that was attempted and failed.
func IsUnsupported(err error) bool {
	return IsCategory(err, CategoryUnsupported) || stdErrors.Is(err, stdErrors.ErrUnsupported)
}
