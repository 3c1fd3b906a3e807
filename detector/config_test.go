package detector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/models/yolo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, inference.EngineTFLite, cfg.Provider.Engine)
	assert.Equal(t, "best_float32.tflite", cfg.Provider.ModelPath)
	assert.Equal(t, 640, cfg.Provider.InputSize)
	assert.Equal(t, 4, cfg.Provider.NumThreads)
	assert.Equal(t, yolo.DefaultStride, cfg.Decode.Stride)
	assert.Equal(t, float32(0.3), cfg.Decode.ConfidenceThreshold)
	assert.Equal(t, float32(0.5), cfg.NMS.IoUThreshold)
	assert.False(t, cfg.NMS.ClassAware)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "empty model path", mutate: func(c *Config) { c.Provider.ModelPath = "" }, wantErr: "model path"},
		{name: "zero stride", mutate: func(c *Config) { c.Decode.Stride = 0 }, wantErr: "stride"},
		{name: "bad layout", mutate: func(c *Config) { c.Decode.Layout = "diagonal" }, wantErr: "layout"},
		{name: "confidence above one", mutate: func(c *Config) { c.Decode.ConfidenceThreshold = 1.1 }, wantErr: "confidence_threshold"},
		{name: "negative labels", mutate: func(c *Config) { c.Decode.LabelCount = -1 }, wantErr: "label_count"},
		{name: "negative iou", mutate: func(c *Config) { c.NMS.IoUThreshold = -0.1 }, wantErr: "iou_threshold"},
		{name: "negative workers", mutate: func(c *Config) { c.NMS.NumWorkers = -2 }, wantErr: "num_workers"},
		{name: "iou of one", mutate: func(c *Config) { c.NMS.IoUThreshold = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseConfig_OverDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
provider:
  engine: onnx
  model_path: models/yolov8n.onnx
  output_shape: [1, 84, 8400]
decode:
  stride: 6
  layout: channel_major
nms:
  iou_threshold: 0.45
  class_aware: true
labels_path: labels.txt
`))
	require.NoError(t, err)

	assert.Equal(t, inference.EngineONNX, cfg.Provider.Engine)
	assert.Equal(t, "models/yolov8n.onnx", cfg.Provider.ModelPath)
	assert.Equal(t, []int64{1, 84, 8400}, cfg.Provider.OutputShape)
	assert.Equal(t, 640, cfg.Provider.InputSize, "default kept")
	assert.Equal(t, 6, cfg.Decode.Stride)
	assert.Equal(t, yolo.LayoutChannelMajor, cfg.Decode.Layout)
	assert.Equal(t, float32(0.3), cfg.Decode.ConfidenceThreshold, "default kept")
	assert.Equal(t, float32(0.45), cfg.NMS.IoUThreshold)
	assert.True(t, cfg.NMS.ClassAware)
	assert.Equal(t, "labels.txt", cfg.LabelsPath)
}

func TestParseConfig_Errors(t *testing.T) {
	_, err := ParseConfig([]byte("provider: [not, a, map]"))
	assert.ErrorContains(t, err, "failed to parse config")

	_, err = ParseConfig([]byte("nms:\n  iou_threshold: 2\n"))
	assert.ErrorContains(t, err, "iou_threshold")
}

func TestLoadConfig_RoundTrip(t *testing.T) {
	want := DefaultConfig()
	want.Provider.Engine = inference.EngineONNX
	want.Provider.ModelPath = "model.onnx"
	want.Provider.OutputShape = []int64{1, 84, 8400}
	want.Decode.Stride = 6
	want.NMS.ClassAware = true

	data, err := yaml.Marshal(want)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "detector.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}
