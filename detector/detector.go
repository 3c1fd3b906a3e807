// Package detector - Object detection pipeline: preprocess, infer, decode and NMS.
package detector

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/labels"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/nvr-ai/go-yolo/models/yolo"
)

// Detection is a post-processed result with its label resolved.
type Detection struct {
	postprocess.Result
	Label string `json:"label" yaml:"label"`
}

// String returns a string representation of the detection.
func (d Detection) String() string {
	return fmt.Sprintf("%s (confidence %f): %s", d.Label, d.Score, d.Box)
}

// Detector runs a YOLO model end to end.
//
// Detect is safe for concurrent use; calls into the engine are serialized
// while preprocessing and post-processing run in parallel.
type Detector struct {
	engine     *inference.ProfiledEngine
	model      *yolo.YOLO
	labels     *labels.Set
	config     Config
	ownsEngine bool
}

// Detect runs the model on img and returns the detections surviving NMS,
// with boxes in img pixel coordinates.
//
// Arguments:
//   - ctx: Checked before preprocessing and before inference.
//   - img: The image to detect objects in.
//
// Returns:
//   - []postprocess.Result: The detections in NMS selection order.
//   - error: An error if any stage fails. The detector stays usable.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]postprocess.Result, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input, err := inference.NewInput(img, d.engine.InputShape())
	if err != nil {
		return nil, fmt.Errorf("failed to prepare input: %w", err)
	}

	output, err := d.engine.Infer(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to run inference: %w", err)
	}

	model := d.model
	if decode := model.Options().Decode; decode.NumChannels == 0 && decode.NumElements == 0 {
		channels, elements, err := output.Dims()
		if err != nil {
			return nil, err
		}
		model = model.WithShape(channels, elements)
	}

	bounds := img.Bounds()
	results, err := model.PostProcess(output.Data, bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, fmt.Errorf("failed to decode output: %w", err)
	}
	return results, nil
}

// DetectLabeled is Detect with labels resolved.
func (d *Detector) DetectLabeled(ctx context.Context, img image.Image) ([]Detection, error) {
	results, err := d.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	return d.Label(results), nil
}

// Label resolves the class of every result against the detector's labels.
func (d *Detector) Label(results []postprocess.Result) []Detection {
	detections := make([]Detection, len(results))
	for i, r := range results {
		detections[i] = Detection{Result: r, Label: d.labels.Name(r.Class)}
	}
	return detections
}

// Labels returns the label set.
func (d *Detector) Labels() *labels.Set {
	return d.labels
}

// Config returns the configuration the detector was built with.
func (d *Detector) Config() Config {
	return d.config
}

// Stats returns the engine timing statistics.
func (d *Detector) Stats() inference.Stats {
	return d.engine.Stats()
}

// Close releases the engine if the detector created it.
func (d *Detector) Close() error {
	if !d.ownsEngine {
		return nil
	}
	return d.engine.Close()
}
