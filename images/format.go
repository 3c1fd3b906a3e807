package images

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	// Also registers the WebP decoder used by Decode and Shrink.
	"github.com/chai2010/webp"
)

// ImageFormat represents supported output image formats.
type ImageFormat string

const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (ImageFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case ".png":
		return FormatPNG, nil
	case ".webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unsupported image extension %q", filepath.Ext(path))
	}
}

// Encode writes img to w in the given format.
//
// Arguments:
//   - w: The destination.
//   - img: The image to encode.
//   - format: The output format. JPEG and WebP are written at quality 90.
//
// Returns:
//   - error: An error if the format is unknown or encoding fails.
func Encode(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case FormatPNG:
		return png.Encode(w, img)
	case FormatWebP:
		return webp.Encode(w, img, &webp.Options{Quality: 90})
	default:
		return fmt.Errorf("unsupported image format: %q", format)
	}
}
