// Package providers - Interpreter backends behind inference.Engine.
package providers

import (
	"context"
	"fmt"
	"log"

	"github.com/nvr-ai/go-yolo/inference"
)

// Config selects and configures an interpreter backend.
type Config struct {
	// Engine specifies the backend to use.
	Engine inference.EngineType `json:"engine" yaml:"engine"`

	// ModelPath specifies the path to the .onnx or .tflite model file.
	ModelPath string `json:"model_path" yaml:"model_path"`

	// SharedLibPath overrides the ONNX Runtime shared library location.
	SharedLibPath string `json:"shared_lib_path" yaml:"shared_lib_path"`

	// NumThreads is the interpreter thread count. Zero lets the runtime pick.
	NumThreads int `json:"num_threads" yaml:"num_threads"`

	// InputSize is the square model input edge, e.g. 640. The TFLite backend
	// reads the shape from the model and ignores it.
	InputSize int `json:"input_size" yaml:"input_size"`

	// InputName and OutputName are the ONNX graph node names.
	InputName  string `json:"input_name" yaml:"input_name"`
	OutputName string `json:"output_name" yaml:"output_name"`

	// OutputShape fixes the ONNX output tensor shape. When empty it is read
	// from the model, which fails for dynamic dimensions.
	OutputShape []int64 `json:"output_shape" yaml:"output_shape"`

	// Warmup defines how many inference runs to perform during initialization.
	Warmup int `json:"warmup" yaml:"warmup"`
}

// DefaultConfig returns the TFLite backend with a 640 input and 4 threads.
func DefaultConfig() Config {
	return Config{
		Engine:     inference.EngineTFLite,
		ModelPath:  "best_float32.tflite",
		NumThreads: 4,
		InputSize:  640,
		InputName:  "images",
		OutputName: "output0",
	}
}

// Validate checks the configuration before any native library is touched.
func (c Config) Validate() error {
	if !c.Engine.Valid() {
		return fmt.Errorf("unsupported engine %q", c.Engine)
	}
	if c.ModelPath == "" {
		return fmt.Errorf("model path must be set before initialization")
	}
	if c.NumThreads < 0 {
		return fmt.Errorf("num_threads must be >= 0, got %d", c.NumThreads)
	}
	if c.Engine == inference.EngineONNX && c.InputSize <= 0 {
		return fmt.Errorf("input_size must be positive, got %d", c.InputSize)
	}
	return nil
}

// NewEngine creates the engine selected by cfg and warms it up.
//
// Arguments:
//   - cfg: The backend configuration.
//
// Returns:
//   - inference.Engine: The ready engine. The caller owns Close.
//   - error: An error if the configuration is invalid or the model fails to load.
func NewEngine(cfg Config) (inference.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		engine inference.Engine
		err    error
	)
	switch cfg.Engine {
	case inference.EngineONNX:
		engine, err = NewONNXEngine(cfg)
	case inference.EngineTFLite:
		engine, err = NewTFLiteEngine(cfg)
	}
	if err != nil {
		return nil, err
	}

	if err := WarmUp(context.Background(), engine, cfg.Warmup); err != nil {
		_ = engine.Close()
		return nil, err
	}

	log.Printf("loaded %s model %s (input %v)", cfg.Engine, cfg.ModelPath, engine.InputShape().Dims())
	return engine, nil
}

// WarmUp runs inference on a zeroed input to warm up the runtime caches.
//
// Arguments:
//   - ctx: The context for the warmup runs.
//   - engine: The engine to warm up.
//   - runs: The number of times to run inference.
//
// Returns:
//   - error: An error if any warmup run fails.
func WarmUp(ctx context.Context, engine inference.Engine, runs int) error {
	if runs <= 0 {
		return nil
	}
	input := make([]float32, engine.InputShape().Len())
	for i := 0; i < runs; i++ {
		if _, err := engine.Infer(ctx, input); err != nil {
			return fmt.Errorf("warmup run %d failed: %w", i, err)
		}
	}
	return nil
}
