package yolo

import (
	"fmt"

	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// Options is the options for the YOLO post-processor.
type Options struct {
	Decode DecodeConfig          `json:"decode" yaml:"decode"`
	NMS    postprocess.NMSConfig `json:"nms" yaml:"nms"`
}

// DefaultOptions returns the stride-4 decode with a 0.3 confidence threshold
// and class-agnostic NMS at 0.5 IoU.
func DefaultOptions() Options {
	return Options{
		Decode: DefaultDecodeConfig(),
		NMS:    postprocess.DefaultNMSConfig(),
	}
}

// YOLO is the instance of the YOLO post-processor.
//
// It holds no mutable state and is safe for concurrent use.
type YOLO struct {
	options Options
}

// NewModel creates a new YOLO post-processor.
//
// Arguments:
//   - opts: The decode and NMS options.
//
// Returns:
//   - The post-processor.
//   - error: An error if the decode configuration is invalid.
func NewModel(opts Options) (*YOLO, error) {
	if err := opts.Decode.Validate(); err != nil {
		return nil, err
	}
	if opts.NMS.IoUThreshold < 0 || opts.NMS.IoUThreshold > 1 {
		return nil, fmt.Errorf("NewModel requires an IoU threshold in [0, 1], got %f", opts.NMS.IoUThreshold)
	}
	return &YOLO{options: opts}, nil
}

// Options returns the options for the YOLO post-processor.
func (m *YOLO) Options() Options {
	return m.options
}

// WithShape returns a copy of m decoding a tensor of the given shape.
func (m *YOLO) WithShape(channels, elements int) *YOLO {
	opts := m.options
	opts.Decode.NumChannels = channels
	opts.Decode.NumElements = elements
	return &YOLO{options: opts}
}

// PostProcess decodes the output of the YOLO model and filters it with NMS.
//
// Arguments:
//   - output: The flat output tensor of the YOLO model.
//   - imageWidth: Width of the original image in pixels.
//   - imageHeight: Height of the original image in pixels.
//
// Returns:
//   - The detections surviving NMS, in selection order.
//   - error: A decode error, such as *OutOfRangeError.
func (m *YOLO) PostProcess(output []float32, imageWidth, imageHeight int) ([]postprocess.Result, error) {
	candidates, err := Decode(output, imageWidth, imageHeight, m.options.Decode)
	if err != nil {
		return nil, err
	}
	return postprocess.ApplyGreedyNMS(candidates, m.options.NMS), nil
}
