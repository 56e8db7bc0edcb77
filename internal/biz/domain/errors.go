package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrExtractionExhausted means every configured model failed
	ErrExtractionExhausted = errors.New("extraction exhausted: all models failed")

	// ErrStalePayload means a button payload could not be decoded (old or unknown version)
	ErrStalePayload = errors.New("confirmation payload is no longer valid")

	// ErrEventGone means the target event no longer exists
	ErrEventGone = errors.New("event no longer exists")

	// ErrSeriesUnsupported means the calendar cannot address a series as a whole
	ErrSeriesUnsupported = errors.New("series operations not supported")

	// ErrNoContent means no source produced any text
	ErrNoContent = errors.New("no content to extract from")
)

// TransientProviderError is a retryable provider failure (rate limit, 5xx, timeout)
type TransientProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *TransientProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: transient error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transient error: %v", e.Provider, e.Err)
}

func (e *TransientProviderError) Unwrap() error { return e.Err }

// ValidationError describes a rejected candidate field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ConversionError is a document conversion or URL fetch failure
type ConversionError struct {
	Source string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion of %s failed: %v", e.Source, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// LifecycleError is a calendar mutation failure, shown to the user verbatim
type LifecycleError struct {
	Op  string
	Err error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *LifecycleError) Unwrap() error { return e.Err }

// PartialSuccessError reports a recreation whose new event was created but
// whose original could not be deleted, leaving both in the calendar.
type PartialSuccessError struct {
	Created    *CalendarEventRef
	OriginalID string
	Err        error
}

func (e *PartialSuccessError) Error() string {
	return fmt.Sprintf("created %s but failed to delete original %s: %v", e.Created.ID, e.OriginalID, e.Err)
}

func (e *PartialSuccessError) Unwrap() error { return e.Err }
