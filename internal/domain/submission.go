package domain

import "strings"

const (
	MinScale     = 2
	MaxScale     = 16
	DefaultScale = 2

	DefaultMaxUploadSize = 32 << 20
)

// ScaleMarks are the labelled stops of the scale control.
var ScaleMarks = []int{2, 4, 8, 16}

// Upload is the image payload of a submission.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
	Width       int
	Height      int
}

func (u Upload) Size() int64 {
	return int64(len(u.Data))
}

func IsImageContentType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

// SubmissionRequest is everything the service needs to create one job.
type SubmissionRequest struct {
	Image     Upload
	Selection Selection
	Scale     int
	SkipAlpha bool
}
