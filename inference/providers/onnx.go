package providers

import (
	"context"
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-yolo/inference"
)

// ONNXEngine runs a model with ONNX Runtime using preallocated tensors.
//
// It is not safe for concurrent Infer calls; wrap it in an
// inference.ProfiledEngine to serialize access.
type ONNXEngine struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	shape   inference.InputShape
}

// NewONNXEngine creates a new ONNX Runtime session.
//
// Order of operations:
//  1. Library path check: Ensures native runtime is accessible.
//  2. Environment setup: Required once per process.
//  3. Tensor allocation: Fixed-shape [1, 3, size, size] input and the model's
//     rank 3 output.
//  4. Session options: Thread count and graph optimization level.
//  5. Session creation: Loads the model and binds the tensors.
//
// Arguments:
//   - cfg: The backend configuration.
//
// Returns:
//   - *ONNXEngine: The engine. The caller owns Close.
//   - error: An error if the session creation fails.
func NewONNXEngine(cfg Config) (*ONNXEngine, error) {
	libPath := cfg.SharedLibPath
	if libPath == "" {
		libPath = GetSharedLibPath()
	}
	if _, err := os.Stat(libPath); err != nil {
		return nil, fmt.Errorf("ONNX Runtime library not found at %q: %w", libPath, err)
	}

	if !ort.IsInitialized() {
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("error initializing ORT environment: %w", err)
		}
	}

	outputShape := cfg.OutputShape
	if len(outputShape) == 0 {
		discovered, err := discoverOutputShape(cfg.ModelPath, cfg.OutputName)
		if err != nil {
			return nil, err
		}
		outputShape = discovered
	}

	shape := inference.InputShape{
		Width:    cfg.InputSize,
		Height:   cfg.InputSize,
		Channels: 3,
		Order:    inference.ChannelOrderCHW,
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(shape.Dims()...))
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(outputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating ORT session options: %w", err)
	}
	defer options.Destroy()

	if err := options.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error setting intra-op threads: %w", err)
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error setting graph optimization level: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating ORT session: %w", err)
	}

	return &ONNXEngine{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
		shape:   shape,
	}, nil
}

// discoverOutputShape reads the declared shape of the named output.
func discoverOutputShape(modelPath, outputName string) ([]int64, error) {
	_, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("error reading model outputs: %w", err)
	}
	for _, info := range outputs {
		if info.Name != outputName {
			continue
		}
		for _, dim := range info.Dimensions {
			if dim <= 0 {
				return nil, fmt.Errorf("output %q has dynamic shape %v; set output_shape", outputName, info.Dimensions)
			}
		}
		return append([]int64(nil), info.Dimensions...), nil
	}
	return nil, fmt.Errorf("model has no output named %q", outputName)
}

// Infer copies input into the session tensor, runs the model and returns a
// copy of the output.
func (e *ONNXEngine) Infer(ctx context.Context, input []float32) (*inference.Output, error) {
	if e.session == nil {
		return nil, fmt.Errorf("session is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dst := e.input.GetData()
	if len(input) != len(dst) {
		return nil, fmt.Errorf("input holds %d floats, model expects %d", len(input), len(dst))
	}
	copy(dst, input)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("failed to run inference: %w", err)
	}

	return &inference.Output{
		Data:  append([]float32(nil), e.output.GetData()...),
		Shape: append([]int64(nil), e.output.GetShape()...),
	}, nil
}

// InputShape returns the [1, 3, size, size] input layout.
func (e *ONNXEngine) InputShape() inference.InputShape {
	return e.shape
}

// Close releases the resources associated with the session.
func (e *ONNXEngine) Close() error {
	if e.input != nil {
		e.input.Destroy()
		e.input = nil
	}
	if e.output != nil {
		e.output.Destroy()
		e.output = nil
	}
	if e.session != nil {
		err := e.session.Destroy()
		e.session = nil
		if err != nil {
			return fmt.Errorf("error destroying ORT session: %w", err)
		}
	}
	return nil
}
