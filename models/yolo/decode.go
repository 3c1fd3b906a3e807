// Package yolo - decode and postprocess YOLO model outputs.
package yolo

import (
	"fmt"

	"github.com/chewxy/math32"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// Layout describes how detections are laid out in the flat output tensor.
type Layout string

const (
	// LayoutRowMajor reads each detection's fields from consecutive values.
	LayoutRowMajor Layout = "row_major"
	// LayoutChannelMajor is [channel][element], as YOLOv8 exports [1, C, N].
	// The tensor is transposed to row-major before decoding.
	LayoutChannelMajor Layout = "channel_major"
)

// FieldsPerDetection is the number of values read per detection:
// x, y, w, h, score, class.
const FieldsPerDetection = 6

const (
	// DefaultStride is the offset between consecutive detections that the
	// validated TFLite export is decoded with. Successive groups overlap by two
	// values; use a stride of FieldsPerDetection for a packed layout.
	DefaultStride = 4
	// DefaultConfidenceThreshold drops detections scoring at or below it.
	DefaultConfidenceThreshold float32 = 0.3
)

const (
	offsetX = iota
	offsetY
	offsetW
	offsetH
	offsetScore
	offsetClass
)

// DecodeConfig is the immutable description of one output tensor and how to
// read it.
type DecodeConfig struct {
	// NumChannels is the declared channel count of the output (shape[1]).
	NumChannels int `json:"num_channels" yaml:"num_channels"`
	// NumElements is the declared detection slot count of the output (shape[2]).
	NumElements int `json:"num_elements" yaml:"num_elements"`
	// Stride is the offset between the first values of consecutive detections.
	Stride int `json:"stride" yaml:"stride"`
	// Layout is the tensor memory layout.
	Layout Layout `json:"layout" yaml:"layout"`
	// ConfidenceThreshold drops detections whose score is <= this value.
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// LabelCount scales the class channel into a label index.
	LabelCount int `json:"label_count" yaml:"label_count"`
}

// DefaultDecodeConfig returns a row-major, stride-4 configuration with a 0.3
// confidence threshold. The shape and label count are left for the caller.
func DefaultDecodeConfig() DecodeConfig {
	return DecodeConfig{
		Stride:              DefaultStride,
		Layout:              LayoutRowMajor,
		ConfidenceThreshold: DefaultConfidenceThreshold,
	}
}

// RequiredLength returns how many values Decode reads for cfg.
func (cfg DecodeConfig) RequiredLength() int {
	need := cfg.NumChannels * cfg.NumElements
	if cfg.NumElements == 0 {
		return need
	}
	if walk := cfg.Stride*(cfg.NumElements-1) + FieldsPerDetection; walk > need {
		need = walk
	}
	return need
}

// Validate checks that the configuration can drive a decode.
func (cfg DecodeConfig) Validate() error {
	if cfg.NumChannels < 0 || cfg.NumElements < 0 {
		return fmt.Errorf("%w: channels=%d elements=%d", ErrInvalidShape, cfg.NumChannels, cfg.NumElements)
	}
	if cfg.Stride < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidStride, cfg.Stride)
	}
	switch cfg.Layout {
	case LayoutRowMajor, LayoutChannelMajor, "":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLayout, cfg.Layout)
	}
	return nil
}

// Decode maps a raw output tensor to candidate boxes.
//
// For every detection slot i in [0, NumElements) the six values starting at
// Stride*i are read as x, y, w, h, score and class. Slots with
// score <= ConfidenceThreshold are dropped. The rest are decoded as:
//
//	xCenter  = x*2 - 1            yCenter  = y*2 - 1
//	width    = w*2                height   = h*2
//	topLeftX = (xCenter - width/2) * imageWidth
//	topLeftY = (yCenter - height/2) * imageHeight
//	box      = [topLeftX, topLeftY, topLeftX + width*imageWidth, topLeftY + height*imageHeight]
//	class    = round(classValue * LabelCount)
//
// Image dimensions are not validated; non-positive values produce degenerate
// boxes.
//
// Arguments:
//   - output: The flat output tensor.
//   - imageWidth: Width of the original image in pixels.
//   - imageHeight: Height of the original image in pixels.
//   - cfg: The decode configuration.
//
// Returns:
//   - The candidates in tensor order.
//   - *OutOfRangeError if output is shorter than cfg.RequiredLength(), or a
//     configuration error from cfg.Validate.
func Decode(output []float32, imageWidth, imageHeight int, cfg DecodeConfig) ([]postprocess.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if need := cfg.RequiredLength(); len(output) < need {
		return nil, &OutOfRangeError{Need: need, Have: len(output)}
	}
	if cfg.NumElements == 0 {
		return []postprocess.Result{}, nil
	}

	if cfg.Layout == LayoutChannelMajor {
		rowMajor, err := toRowMajor(output, cfg.NumChannels, cfg.NumElements)
		if err != nil {
			return nil, err
		}
		output = rowMajor
		if walk := cfg.Stride*(cfg.NumElements-1) + FieldsPerDetection; walk > len(output) {
			return nil, &OutOfRangeError{Need: walk, Have: len(output)}
		}
	}

	width := float32(imageWidth)
	height := float32(imageHeight)
	labels := float32(cfg.LabelCount)
	results := make([]postprocess.Result, 0, cfg.NumElements)

	for i := 0; i < cfg.NumElements; i++ {
		offset := i * cfg.Stride
		score := output[offset+offsetScore]
		// Negated so that a NaN score is dropped too.
		if !(score > cfg.ConfidenceThreshold) {
			continue
		}

		xCenter := output[offset+offsetX]*2 - 1
		yCenter := output[offset+offsetY]*2 - 1
		w := output[offset+offsetW] * 2
		h := output[offset+offsetH] * 2
		left := (xCenter - w/2) * width
		top := (yCenter - h/2) * height

		results = append(results, postprocess.Result{
			Box: images.Rect{
				Left:   left,
				Top:    top,
				Right:  left + w*width,
				Bottom: top + h*height,
			},
			Score: score,
			Class: int(math32.Round(output[offset+offsetClass] * labels)),
		})
	}

	return results, nil
}

// toRowMajor transposes a [channels][elements] tensor into
// [elements][channels]. The input slice is left untouched.
func toRowMajor(output []float32, channels, elements int) ([]float32, error) {
	if channels == 0 {
		return nil, fmt.Errorf("%w: channel-major layout needs a channel count", ErrInvalidShape)
	}

	backing := make([]float32, channels*elements)
	copy(backing, output)

	t := tensor.New(tensor.WithShape(channels, elements), tensor.WithBacking(backing))
	if err := t.T(); err != nil {
		return nil, fmt.Errorf("failed to transpose output tensor: %w", err)
	}
	if err := t.Transpose(); err != nil {
		return nil, fmt.Errorf("failed to materialize transposed output tensor: %w", err)
	}

	data, ok := t.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("%w: transposed tensor is %v, want float32", ErrInvalidShape, t.Dtype())
	}
	return data, nil
}
