// Package apperr defines the error taxonomy shared by the relocation
// engine and the transport layers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure. Transport layers map kinds to
// status codes; callers can branch on them without parsing messages.
type Kind string

const (
	InvalidPath         Kind = "invalid_path"
	WrongTargetKind     Kind = "wrong_target_kind"
	SourceNotFound      Kind = "source_not_found"
	DestinationExists   Kind = "destination_exists"
	CircularDestination Kind = "circular_destination"
	FilesystemFailure   Kind = "filesystem_failure"
)

// Error carries a kind, a human-readable message, and optionally a
// literal example of the alternative invocation to use.
type Error struct {
	Kind       Kind
	Message    string
	Suggestion string
	wrapped    error
}

// New creates an Error with the given kind and formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that records an underlying cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), wrapped: err}
}

// WithSuggestion attaches an alternative-invocation example and returns e.
func (e *Error) WithSuggestion(format string, args ...any) *Error {
	e.Suggestion = fmt.Sprintf(format, args...)
	return e
}

// Error returns the message, with the underlying cause appended when present.
func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.wrapped)
	}
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.wrapped }

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error with the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// SuggestionOf returns the attached suggestion, or "" when there is none.
func SuggestionOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Suggestion
	}
	return ""
}
