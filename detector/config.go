package detector

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/nvr-ai/go-yolo/models/yolo"
)

// Config is the complete, immutable detector configuration.
type Config struct {
	// Provider selects and configures the interpreter backend.
	Provider providers.Config `json:"provider" yaml:"provider"`

	// Decode describes the output tensor. A zero shape is taken from the
	// interpreter output on every call, and a zero label count from the label set.
	Decode yolo.DecodeConfig `json:"decode" yaml:"decode"`

	// NMS controls Non-Maximum Suppression.
	NMS postprocess.NMSConfig `json:"nms" yaml:"nms"`

	// LabelsPath is a text file with one label per line. Empty uses the 80
	// COCO labels.
	LabelsPath string `json:"labels_path" yaml:"labels_path"`
}

// DefaultConfig returns a configuration for a 640x640 float32 TFLite export
// with a 0.3 confidence threshold and class-agnostic NMS at 0.5 IoU.
//
// Returns:
//   - Config: The default configuration.
//
// @example
// config := DefaultConfig()
// config.Provider.ModelPath = "path/to/model.tflite"
// d, err := NewBuilder().WithConfig(config).Build()
func DefaultConfig() Config {
	return Config{
		Provider: providers.DefaultConfig(),
		Decode:   yolo.DefaultDecodeConfig(),
		NMS:      postprocess.DefaultNMSConfig(),
	}
}

// Validate checks every section of the configuration.
func (c Config) Validate() error {
	if err := c.Provider.Validate(); err != nil {
		return fmt.Errorf("invalid provider config: %w", err)
	}
	if err := c.Decode.Validate(); err != nil {
		return fmt.Errorf("invalid decode config: %w", err)
	}
	if c.Decode.ConfidenceThreshold < 0 || c.Decode.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0, 1], got %f", c.Decode.ConfidenceThreshold)
	}
	if c.Decode.LabelCount < 0 {
		return fmt.Errorf("label_count must be >= 0, got %d", c.Decode.LabelCount)
	}
	if c.NMS.IoUThreshold < 0 || c.NMS.IoUThreshold > 1 {
		return fmt.Errorf("iou_threshold must be in [0, 1], got %f", c.NMS.IoUThreshold)
	}
	if c.NMS.NumWorkers < 0 {
		return fmt.Errorf("num_workers must be >= 0, got %d", c.NMS.NumWorkers)
	}
	return nil
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
// Keys missing from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read config %s", path)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
