package domain

import (
	"fmt"

	"github.com/allisson/envelope/internal/errors"
)

// ErrMalformedEnvelope indicates an envelope whose shape is invalid: wrong iv
// length, truncated data, bad encoding or an invalid key version.
var ErrMalformedEnvelope = errors.Wrap(errors.ErrInvalidInput, "malformed envelope")

// ErrBatchTooLarge indicates a batch above the configured maximum size.
var ErrBatchTooLarge = errors.Wrap(errors.ErrInvalidInput, "batch too large")

// BatchError reports the element that failed an all-or-nothing batch.
type BatchError struct {
	Index int
	Err   error
}

// Error implements error.
func (e *BatchError) Error() string {
	return fmt.Sprintf("batch element %d: %v", e.Index, e.Err)
}

// Unwrap exposes the element's error to errors.Is and errors.As.
func (e *BatchError) Unwrap() error {
	return e.Err
}

// ReEncryptResult is the outcome for one element of a re-encryption batch:
// either the new envelope or the element's error.
type ReEncryptResult struct {
	Envelope *Envelope
	Err      error
}
