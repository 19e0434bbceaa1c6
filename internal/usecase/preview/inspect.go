package preview

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"image-enhancer/internal/domain"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Inspect sniffs the upload's real content type and, for formats Go can
// decode, its dimensions. The browser-supplied content type is ignored.
// Image types without a decoder (heic, avif, svg) pass with zero
// dimensions; the service decides whether it can read them.
func Inspect(filename string, data []byte) (domain.Upload, error) {
	if len(data) == 0 {
		return domain.Upload{}, ErrEmptyImage
	}

	mt := mimetype.Detect(data)
	contentType := mt.String()
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}

	if !domain.IsImageContentType(contentType) {
		return domain.Upload{}, fmt.Errorf("%w: detected %s", ErrNotAnImage, contentType)
	}

	upload := domain.Upload{
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil {
		upload.Width = cfg.Width
		upload.Height = cfg.Height
	}

	return upload, nil
}
