package archive

import "errors"

var (
	ErrStorageError   = errors.New("storage error")
	ErrBucketNotReady = errors.New("archive bucket not ready")
	ErrEmptyUpload    = errors.New("empty upload")
	ErrInvalidJobID   = errors.New("job id cannot name an archive object")
)
