// Package postprocess - Postprocessing utilities for detection outputs.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-yolo/images"
)

// Result represents a single detection hypothesis.
//
// Results are values; filtering includes or excludes them and never edits one.
type Result struct {
	// The bounding box of the result, in image pixels.
	Box images.Rect `json:"box" yaml:"box"`
	// The confidence score of the result.
	Score float32 `json:"score" yaml:"score"`
	// The predicted class index of the result.
	Class int `json:"class" yaml:"class"`
}

func (r Result) String() string {
	return fmt.Sprintf("class %d (confidence %f): %s", r.Class, r.Score, r.Box)
}
