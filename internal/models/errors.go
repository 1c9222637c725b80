package models

import (
	"errors"
	"fmt"
)

var (
	ErrNoValidInput     = errors.New("no valid input")
	ErrNoSuccessfulJobs = errors.New("no successful jobs to export")
	ErrDecode           = errors.New("failed to decode image")
	ErrTimeout          = errors.New("timeout")
	ErrQuotaExceeded    = errors.New("history quota exceeded")
	ErrNotFound         = errors.New("not found")
	ErrBatchTooLarge    = errors.New("too many prompts in batch")
	ErrJobFinalized     = errors.New("job already finished")
	ErrJobStarted       = errors.New("job already started")
	ErrInterrupted      = errors.New("batch interrupted by shutdown")

	ErrModelRefusal = errors.New("model refusal")
	ErrSafetyBlock  = errors.New("safety block")
	ErrNoOutput     = errors.New("no output")
)

type GenerationFailure string

const (
	FailureRefusal  GenerationFailure = "refusal"
	FailureSafety   GenerationFailure = "safety"
	FailureNoOutput GenerationFailure = "no_output"
)

// GenerationError is returned by the generator when the upstream model
// answered but did not produce media.
type GenerationError struct {
	Kind    GenerationFailure
	Message string
}

func (e *GenerationError) Error() string {
	if e.Message == "" {
		return e.sentinel().Error()
	}
	return fmt.Sprintf("%s: %s", e.sentinel(), e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.sentinel()
}

func (e *GenerationError) sentinel() error {
	switch e.Kind {
	case FailureSafety:
		return ErrSafetyBlock
	case FailureNoOutput:
		return ErrNoOutput
	default:
		return ErrModelRefusal
	}
}
