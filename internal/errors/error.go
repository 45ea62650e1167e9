package errors

import (
	"fmt"
	"strings"
)

// Category groups error codes by the part of the engine that raises them.
type Category string

const (
	CategoryRegistry     Category = "registry"
	CategoryUpdate       Category = "update"
	CategorySubscription Category = "subscription"
	CategoryBinding      Category = "binding"
	CategoryConfig       Category = "config"
)

// Error is a coded error with the store it concerns and a fix hint.
type Error struct {
	// Code is a unique identifier (e.g., "H002", "W001").
	Code string

	// Category is the engine area that raised the error.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation.
	Detail string

	// Store is the name of the store involved, if any.
	Store string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Store != "" {
		fmt.Fprintf(&b, " (store %q)", e.Store)
	}
	if e.Wrapped != nil && !isSentinel(e.Wrapped) {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// IsWarning reports whether the error is a non-fatal misuse warning.
func (e *Error) IsWarning() bool {
	return strings.HasPrefix(e.Code, "W")
}

// WithStore records the store the error concerns.
func (e *Error) WithStore(name string) *Error {
	e.Store = name
	return e
}

// WithDetail replaces the registered detail text.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// WithSuggestion adds a fix suggestion.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// FromError wraps err in an Error with the given code unless it already is one.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return New(code).Wrap(err)
}

// sentinel marks package-level errors whose text would only repeat Message.
type sentinel interface {
	Sentinel()
}

func isSentinel(err error) bool {
	_, ok := err.(sentinel)
	return ok
}

// Sentinel is a comparable error value meant to be wrapped by Error and
// matched with errors.Is.
type Sentinel string

func (s Sentinel) Error() string { return string(s) }

// Sentinel marks s as a sentinel.
func (Sentinel) Sentinel() {}
