package preview

import "errors"

var (
	ErrNotAnImage    = errors.New("file is not an image")
	ErrEmptyImage    = errors.New("image is empty")
	ErrUndecodable   = errors.New("image cannot be decoded")
	ErrInvalidSize   = errors.New("thumbnail size must be positive")
	ErrTooManyPixels = errors.New("image is too large to preview")
)
