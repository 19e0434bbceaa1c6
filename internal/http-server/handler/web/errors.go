package web

import "errors"

var (
	ErrMissingImage         = errors.New("image is required")
	ErrInvalidForm          = errors.New("invalid form")
	ErrStreamingUnsupported = errors.New("streaming not supported")
)

const (
	msgServiceUnavailable = "The enhancement service is unavailable right now. Please try again in a moment."
	msgSubmissionFailed   = "Submission failed. Please try again."
	msgInFlight           = "This submission is already being processed."
	msgInvalidSelection   = "The selected model is no longer available. Please choose another one."
	msgInvalidScale       = "Scale must be between 2 and 16."
	msgInvalidImage       = "The selected file is not a supported image."
	msgMissingImage       = "Please choose an image to enhance."
	msgFileTooLarge       = "The image is too large."
	msgInvalidForm        = "The form could not be read. Please reload the page and try again."
	msgNotFound           = "This page could not be found."
	msgBadGateway         = "The enhancement service could not load this result."
)
