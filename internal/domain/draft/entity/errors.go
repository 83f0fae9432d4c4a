package entity

import (
	"errors"
	"fmt"
)

// Domain errors for drafts
var (
	// Validation errors
	ErrScheduledTimeInPast = errors.New("scheduled time must be in the future")
	ErrInvalidStatus       = errors.New("invalid draft status")
	ErrInvalidStep         = errors.New("invalid pipeline step")
	ErrEmptyBody           = errors.New("draft has no generated body")

	// Business logic errors
	ErrDraftNotFound       = errors.New("draft not found")
	ErrNotConfirmed        = errors.New("draft summary is not confirmed yet")
	ErrNotSchedulable      = errors.New("draft cannot be scheduled in current status")
	ErrNotScheduled        = errors.New("draft is not scheduled")
	ErrAlreadyPublished    = errors.New("draft is already published")
	ErrPublishInProgress   = errors.New("draft is being published by another caller")
	ErrRetryNotAllowed     = errors.New("draft is not eligible for retry")
	ErrNothingToRetry      = errors.New("draft has no recorded failure to retry")
)

// StepError wraps a pipeline-step failure with the draft it happened to,
// so callers can tell the user the draft is preserved and safe to retry.
type StepError struct {
	DraftID int64
	Step    PipelineStep
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("draft %d: %s step failed: %v (draft preserved for retry)", e.DraftID, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
