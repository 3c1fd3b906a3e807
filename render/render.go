// Package render - Draws detections onto images with OpenCV.
package render

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-yolo/detector"
	"github.com/nvr-ai/go-yolo/images"
)

// Style controls how boxes and captions are drawn.
type Style struct {
	BoxColor  color.RGBA `json:"box_color" yaml:"box_color"`
	TextColor color.RGBA `json:"text_color" yaml:"text_color"`
	Thickness int        `json:"thickness" yaml:"thickness"`
	FontScale float64    `json:"font_scale" yaml:"font_scale"`
}

// DefaultStyle draws green two pixel boxes with green captions.
func DefaultStyle() Style {
	return Style{
		BoxColor:  color.RGBA{0, 255, 0, 0},
		TextColor: color.RGBA{0, 255, 0, 0},
		Thickness: 2,
		FontScale: 0.5,
	}
}

// Draw returns a copy of img with every detection boxed and captioned with
// its label and score. img is not modified.
//
// Arguments:
//   - img: The source image.
//   - detections: Boxes in img pixel coordinates.
//   - style: The drawing style.
//
// Returns:
//   - image.Image: The annotated copy.
//   - error: An error if the image cannot be converted to or from a Mat.
func Draw(img image.Image, detections []detector.Detection, style Style) (image.Image, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to Mat: %w", err)
	}
	defer mat.Close()

	for _, d := range detections {
		rect := d.Box.ToRectangle()
		gocv.Rectangle(&mat, rect, style.BoxColor, style.Thickness)

		caption := fmt.Sprintf("%s %.2f", d.Label, d.Score)
		origin := image.Pt(rect.Min.X, rect.Min.Y-4)
		if origin.Y < 12 {
			origin.Y = rect.Min.Y + 14
		}
		gocv.PutText(&mat, caption, origin, gocv.FontHersheySimplex, style.FontScale, style.TextColor, 1)
	}

	out, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert Mat to image: %w", err)
	}
	return out, nil
}

// Save encodes img to path, choosing the format from the extension.
func Save(path string, img image.Image) error {
	format, err := images.FormatFromPath(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := images.Encode(f, img, format); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
