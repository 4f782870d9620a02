// Package cverrors holds the error taxonomy shared by the matching pipeline.
//
// Per-item errors (extraction, embedding, notification) are reported and skipped
// by batch passes. ErrDimensionMismatch is fatal for a matching run.
package cverrors

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when two compared vectors differ in length.
// It means the corpus mixes embedding models.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ErrExtraction, ErrEmbedding and ErrNotification match any error of the
// corresponding type with errors.Is.
var (
	ErrExtraction   = &ExtractionError{}
	ErrEmbedding    = &EmbeddingError{}
	ErrNotification = &NotificationError{}
)

// ExtractionError is returned when a source document cannot be read or parsed.
type ExtractionError struct {
	Source string
	Err    error
}

func NewExtractionError(source string, err error) *ExtractionError {
	return &ExtractionError{Source: source, Err: err}
}

func (e *ExtractionError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("extraction failed: %v", e.Err)
	}
	return fmt.Sprintf("extraction failed for %q: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool {
	_, ok := target.(*ExtractionError)
	return ok
}

// EmbeddingError is returned when the embedding service fails or returns unusable data.
type EmbeddingError struct {
	Provider string
	Model    string
	Err      error
}

func NewEmbeddingError(provider, model string, err error) *EmbeddingError {
	return &EmbeddingError{Provider: provider, Model: model, Err: err}
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding via %s (%s): %v", e.Provider, e.Model, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

func (e *EmbeddingError) Is(target error) bool {
	_, ok := target.(*EmbeddingError)
	return ok
}

// NotificationError is returned when a match notification cannot be delivered.
type NotificationError struct {
	Recipient string
	Err       error
}

func NewNotificationError(recipient string, err error) *NotificationError {
	return &NotificationError{Recipient: recipient, Err: err}
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Recipient, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

func (e *NotificationError) Is(target error) bool {
	_, ok := target.(*NotificationError)
	return ok
}
