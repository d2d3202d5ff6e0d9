package exercise

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBatchInProgress is returned when the owner already has an open
	// batch, or when an operation races with one that is evaluating.
	ErrBatchInProgress = errors.New("an exercise batch is already in progress")

	// ErrBatchNotFound is returned for a batch id that is not open.
	ErrBatchNotFound = errors.New("exercise batch not found")

	// ErrBatchSettled is returned when answers are resubmitted for a
	// batch whose results were already applied. Nothing is re-applied.
	ErrBatchSettled = errors.New("exercise batch already settled")

	// ErrNothingToPractice is returned when no words or topics match the
	// constraints.
	ErrNothingToPractice = errors.New("nothing to practice for these constraints")
)

// BatchMismatchError is returned when submitted answers do not cover
// exactly the exercises of the open batch. The batch stays open.
type BatchMismatchError struct {
	BatchID    string
	Missing    []string // exercise ids without an answer
	Unexpected []string // answered ids not in the batch
	Duplicate  []string // ids answered more than once
}

func (e *BatchMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected %s", strings.Join(e.Unexpected, ", ")))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate %s", strings.Join(e.Duplicate, ", ")))
	}
	return fmt.Sprintf("answers do not match batch %s: %s", e.BatchID, strings.Join(parts, "; "))
}

// ValidationError is returned for out-of-range request parameters.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
