package images

import (
	"bytes"
	"fmt"
	"image"

	"github.com/cshum/vipsgen/vips"
)

// Shrink decodes an encoded image, first scaling it down with libvips when
// either edge exceeds maxEdge. The aspect ratio is preserved. Images that
// already fit, or a maxEdge <= 0, decode unchanged.
//
// Arguments:
//   - data: The encoded image.
//   - maxEdge: The longest allowed edge in pixels.
//
// Returns:
//   - image.Image: The decoded, possibly shrunk image.
//   - error: An error if the image fails to load or resize.
func Shrink(data []byte, maxEdge int) (image.Image, error) {
	if maxEdge <= 0 {
		return DecodeBytes(data)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || (cfg.Width <= maxEdge && cfg.Height <= maxEdge) {
		return DecodeBytes(data)
	}

	// Load the image from buffer.
	img, err := vips.NewImageFromBuffer(data, &vips.LoadOptions{
		Access: vips.AccessSequential,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	defer img.Close()

	// Fit inside a maxEdge square. Thumbnailing also applies EXIF rotation.
	err = img.ThumbnailImage(maxEdge, &vips.ThumbnailImageOptions{
		Height: maxEdge,
		FailOn: vips.FailOnError,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resize image: %w", err)
	}

	resized, err := img.PngsaveBuffer(&vips.PngsaveBufferOptions{})
	if err != nil || len(resized) == 0 {
		return nil, fmt.Errorf("failed to encode resized image")
	}

	return DecodeBytes(resized)
}
