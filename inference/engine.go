// Package inference - Inference engine interface and input preparation.
package inference

import (
	"context"
	"fmt"
)

// Engine is an opaque interpreter that turns a preprocessed input tensor into
// a raw output tensor.
//
// Implementations wrap ONNX Runtime or TensorFlow Lite; tests use fakes so
// the decode and NMS logic runs without a model file.
type Engine interface {
	// Infer runs the model on input, which must hold InputShape().Len() values.
	Infer(ctx context.Context, input []float32) (*Output, error)
	// InputShape reports the tensor layout Infer expects.
	InputShape() InputShape
	// Close releases the interpreter and its tensors.
	Close() error
}

// Output is one model output tensor.
type Output struct {
	// Data is the flat tensor, owned by the caller.
	Data []float32
	// Shape is the declared tensor shape, e.g. [1, 84, 8400].
	Shape []int64
}

// Dims returns the channel and element counts of a [batch, channels, elements]
// output.
//
// Returns:
//   - channels: shape[1].
//   - elements: shape[2].
//   - error: An error if the output is not rank 3.
func (o *Output) Dims() (channels, elements int, err error) {
	if len(o.Shape) != 3 {
		return 0, 0, fmt.Errorf("expected a rank 3 output tensor, got shape %v", o.Shape)
	}
	return int(o.Shape[1]), int(o.Shape[2]), nil
}

// InputShape describes the model input image tensor.
type InputShape struct {
	Width    int          `json:"width" yaml:"width"`
	Height   int          `json:"height" yaml:"height"`
	Channels int          `json:"channels" yaml:"channels"`
	Order    ChannelOrder `json:"order" yaml:"order"`
}

// Validate checks that the shape describes a non-empty RGB image tensor.
func (s InputShape) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("invalid input shape %dx%d", s.Width, s.Height)
	}
	if s.Channels != 3 {
		return fmt.Errorf("expected 3 input channels, got %d", s.Channels)
	}
	switch s.Order {
	case ChannelOrderCHW, ChannelOrderHWC:
	default:
		return fmt.Errorf("unknown channel order %q", s.Order)
	}
	return nil
}

// Len returns the number of float32 values in the input tensor.
func (s InputShape) Len() int {
	return s.Width * s.Height * s.Channels
}

// Dims returns the tensor shape with a batch of one, in the order the
// interpreter expects.
func (s InputShape) Dims() []int64 {
	if s.Order == ChannelOrderHWC {
		return []int64{1, int64(s.Height), int64(s.Width), int64(s.Channels)}
	}
	return []int64{1, int64(s.Channels), int64(s.Height), int64(s.Width)}
}
