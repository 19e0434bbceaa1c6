package enhancer

import (
	"errors"
	"fmt"
)

var (
	ErrServiceUnavailable = errors.New("enhancement service unavailable")
	ErrSubmissionFailed   = errors.New("submission failed")
	ErrNotFound           = errors.New("job not found")
	ErrNotReady           = errors.New("job not ready")
	ErrServiceError       = errors.New("enhancement service error")
)

const genericSubmissionMessage = "Submission failed. Please try again."

// SubmissionError is a failed job creation. Message is the structured
// server message when one was returned and a generic fallback otherwise.
type SubmissionError struct {
	StatusCode int
	Message    string
	Structured bool
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("submission failed: %s", e.Message)
	}
	return fmt.Sprintf("submission failed with status %d: %s", e.StatusCode, e.Message)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

func (e *SubmissionError) Is(target error) bool {
	return target == ErrSubmissionFailed
}

// ServiceError is any resolution failure other than absence.
type ServiceError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("enhancement service error: %s", msg)
	}
	return fmt.Sprintf("enhancement service error (status %d): %s", e.StatusCode, msg)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return target == ErrServiceError
}
