package contentgen

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/lexiz/internal/llm"
)

var (
	// ErrUnavailable means the generator could not be reached after
	// retries. The caller should try the whole batch again later.
	ErrUnavailable = errors.New("exercises unavailable, try again")

	// ErrMalformedResponse means the generator answered but the envelope
	// could not be used. For evaluation it is fatal for the batch.
	ErrMalformedResponse = errors.New("malformed generator response")
)

// classify maps a provider error onto the boundary taxonomy while keeping
// the cause in the chain. A timeout counts as unavailable; only a caller
// cancellation passes through unchanged.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	case llm.IsMalformed(err):
		return fmt.Errorf("%s: %w: %w", op, ErrMalformedResponse, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
}
