package core

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by Enqueue once the worker lane no longer accepts jobs.
	ErrClosed = errors.New("worker lane is closed")
	// ErrWorkerUnavailable is observed by a waiting request when its job was
	// dropped without a result, e.g. the worker panicked or was stopped.
	ErrWorkerUnavailable = errors.New("worker is unavailable")
	// ErrProcessing matches every *ProcessingError via errors.Is.
	ErrProcessing = errors.New("image processing failed")
	// ErrInvalidSize is returned when both target dimensions are zero.
	ErrInvalidSize = errors.New("target width and height must not both be zero")
	// ErrImageTooLarge is returned when the source or target image exceeds the
	// configured pixel budget.
	ErrImageTooLarge = errors.New("image exceeds the pixel limit")
)

// ProcessingError wraps a failure of one stage of the resize pipeline.
type ProcessingError struct {
	Stage string
	Err   error
}

// NewProcessingError wraps err with the pipeline stage it happened in.
func NewProcessingError(stage string, err error) *ProcessingError {
	return &ProcessingError{Stage: stage, Err: err}
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrProcessing.
func (e *ProcessingError) Is(target error) bool {
	return target == ErrProcessing
}
