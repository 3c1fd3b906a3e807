package inference

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// ChannelOrder defines the ordering of image channels.
type ChannelOrder string

const (
	// ChannelOrderCHW is Channel-Height-Width ordering (common for ONNX).
	ChannelOrderCHW ChannelOrder = "chw"
	// ChannelOrderHWC is Height-Width-Channel ordering (TFLite).
	ChannelOrderHWC ChannelOrder = "hwc"
)

// PrepareInput prepares the input for the model before inference is called.
//
// The image is resized to the input shape with bilinear interpolation,
// normalized from [0, 255] to [0, 1] and written as float32 RGB in the
// shape's channel order.
//
// Arguments:
//   - img: The image to prepare.
//   - shape: The model input shape.
//   - dst: The destination tensor to populate.
//
// Returns:
//   - error: An error if the input preparation fails.
func PrepareInput(img image.Image, shape InputShape, dst []float32) error {
	if img == nil {
		return errors.New("image is nil")
	}
	if err := shape.Validate(); err != nil {
		return err
	}
	if len(dst) < shape.Len() {
		return fmt.Errorf("Destination tensor only holds %d floats, needs "+
			"%d (make sure it's the right shape!)", len(dst), shape.Len())
	}

	resized := resize.Resize(uint(shape.Width), uint(shape.Height), img, resize.Bilinear)
	bounds := resized.Bounds()
	channelSize := shape.Width * shape.Height

	i := 0
	for y := 0; y < shape.Height; y++ {
		for x := 0; x < shape.Width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			red := float32(r>>8) / 255.0
			green := float32(g>>8) / 255.0
			blue := float32(b>>8) / 255.0

			if shape.Order == ChannelOrderHWC {
				dst[i*3] = red
				dst[i*3+1] = green
				dst[i*3+2] = blue
			} else {
				dst[i] = red
				dst[channelSize+i] = green
				dst[channelSize*2+i] = blue
			}
			i++
		}
	}
	return nil
}

// NewInput allocates an input tensor for shape and fills it from img.
func NewInput(img image.Image, shape InputShape) ([]float32, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(err, "input preparation failed")
	}
	dst := make([]float32, shape.Len())
	if err := PrepareInput(img, shape, dst); err != nil {
		return nil, errors.Wrap(err, "input preparation failed")
	}
	return dst, nil
}
