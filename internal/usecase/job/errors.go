package job

import "errors"

var (
	ErrMissingToken       = errors.New("submission token is missing")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrUnknownSubmission  = errors.New("unknown submission")
	ErrInvalidSelection   = errors.New("selection is not in the catalog")
	ErrInvalidScale       = errors.New("scale out of range")
	ErrInvalidImage       = errors.New("invalid image")
	ErrFileTooLarge       = errors.New("file too large")
)
