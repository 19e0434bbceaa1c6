package preview

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

const (
	DefaultThumbnailSize = 200
	// MaxPreviewPixels bounds what DataURL is willing to decode.
	MaxPreviewPixels = 40_000_000
)

// Thumbnailer renders small inline previews of uploads for the progress
// panel.
type Thumbnailer struct {
	size int
}

func NewThumbnailer(size int) *Thumbnailer {
	return &Thumbnailer{size: size}
}

// DataURL returns a PNG thumbnail that fits inside a size x size box as a
// data: URL. Images already smaller than the box are not upscaled.
func (t *Thumbnailer) DataURL(data []byte) (string, error) {
	if t.size <= 0 {
		return "", ErrInvalidSize
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUndecodable, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPreviewPixels {
		return "", fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUndecodable, err)
	}

	thumbnail := t.fit(img)

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, thumbnail); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (t *Thumbnailer) fit(img image.Image) image.Image {
	bounds := img.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()

	if origWidth <= t.size && origHeight <= t.size {
		return img
	}

	var newWidth, newHeight int
	if origWidth > origHeight {
		newWidth = t.size
		newHeight = max(1, origHeight*t.size/origWidth)
	} else {
		newHeight = t.size
		newWidth = max(1, origWidth*t.size/origHeight)
	}

	return resizeImage(img, newWidth, newHeight)
}

func resizeImage(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return dst
}
