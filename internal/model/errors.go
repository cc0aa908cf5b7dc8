package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures surfaced to callers
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation"
	KindSourceRetrieval ErrorKind = "source_retrieval"
	KindNoSources       ErrorKind = "no_sources"
	KindAnalysis        ErrorKind = "analysis"
	KindTranslation     ErrorKind = "translation"
	KindNotFound        ErrorKind = "not_found"
	KindInternal        ErrorKind = "internal"
)

// Sentinel errors, one per kind, matchable with errors.Is
var (
	// ErrValidation indicates the claim text was missing, too short or too long
	ErrValidation = errors.New("invalid claim")

	// ErrSourceRetrieval indicates the search provider failed on every page
	ErrSourceRetrieval = errors.New("source retrieval failed")

	// ErrNoSources indicates retrieval succeeded but found nothing usable
	ErrNoSources = errors.New("no sources found")

	// ErrAnalysis indicates the language model failed or returned unusable output
	ErrAnalysis = errors.New("analysis failed")

	// ErrTranslation indicates the optional translation step failed
	ErrTranslation = errors.New("translation failed")

	// ErrNotFound indicates no stored analysis matched
	ErrNotFound = errors.New("not found")
)

// Error is a classified error carrying a user-facing message and the
// internal cause
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewError creates a classified error
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Errorf creates a classified error with a formatted message and no cause
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the same kind
func (e *Error) Is(target error) bool {
	s := sentinel(e.Kind)
	return s != nil && target == s
}

func sentinel(kind ErrorKind) error {
	switch kind {
	case KindValidation:
		return ErrValidation
	case KindSourceRetrieval:
		return ErrSourceRetrieval
	case KindNoSources:
		return ErrNoSources
	case KindAnalysis:
		return ErrAnalysis
	case KindTranslation:
		return ErrTranslation
	case KindNotFound:
		return ErrNotFound
	default:
		return nil
	}
}

// KindOf returns the kind of the first classified error in err's chain,
// or KindInternal
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for _, kind := range []ErrorKind{KindValidation, KindSourceRetrieval, KindNoSources, KindAnalysis, KindTranslation, KindNotFound} {
		if errors.Is(err, sentinel(kind)) {
			return kind
		}
	}
	return KindInternal
}

// UserMessage returns the sanitized message shown to end users
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindValidation {
		return e.Message
	}
	switch KindOf(err) {
	case KindValidation:
		return "Invalid claim text"
	case KindSourceRetrieval:
		return "Could not reach the search provider. Please try again."
	case KindNoSources:
		return "No sources found for this claim. Try a different query."
	case KindAnalysis:
		return "Failed to analyze the claim. Please try again."
	case KindNotFound:
		return "Analysis not found"
	default:
		return "Internal error. Please try again."
	}
}

// HTTPStatus maps an error kind to the status class of the request boundary
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
