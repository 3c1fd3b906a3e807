package providers

import (
	"context"
	"fmt"
	"log"

	"github.com/mattn/go-tflite"

	"github.com/nvr-ai/go-yolo/inference"
)

// TFLiteEngine runs a float32 TensorFlow Lite model on the CPU.
//
// It is not safe for concurrent Infer calls; wrap it in an
// inference.ProfiledEngine to serialize access.
type TFLiteEngine struct {
	model  *tflite.Model
	interp *tflite.Interpreter
	shape  inference.InputShape
}

// NewTFLiteEngine loads the model, allocates tensors and reads the
// [1, height, width, 3] input shape from the interpreter.
//
// Arguments:
//   - cfg: The backend configuration. InputSize is ignored.
//
// Returns:
//   - *TFLiteEngine: The engine. The caller owns Close.
//   - error: An error if the model cannot be loaded or is not float32 RGB.
func NewTFLiteEngine(cfg Config) (*TFLiteEngine, error) {
	model := tflite.NewModelFromFile(cfg.ModelPath)
	if model == nil {
		return nil, fmt.Errorf("cannot load TFLite model %q", cfg.ModelPath)
	}

	options := tflite.NewInterpreterOptions()
	defer options.Delete()
	if cfg.NumThreads > 0 {
		options.SetNumThread(cfg.NumThreads)
	}
	options.SetErrorReporter(func(msg string, _ interface{}) {
		log.Printf("tflite: %s", msg)
	}, nil)

	interp := tflite.NewInterpreter(model, options)
	if interp == nil {
		model.Delete()
		return nil, fmt.Errorf("cannot create TFLite interpreter for %q", cfg.ModelPath)
	}

	engine := &TFLiteEngine{model: model, interp: interp}

	if status := interp.AllocateTensors(); status != tflite.OK {
		_ = engine.Close()
		return nil, fmt.Errorf("TFLite tensor allocation failed: %v", status)
	}

	input := interp.GetInputTensor(0)
	if input == nil || input.Type() != tflite.Float32 || input.NumDims() != 4 || input.Dim(3) != 3 {
		_ = engine.Close()
		return nil, fmt.Errorf("model %q must take a float32 [1, h, w, 3] input", cfg.ModelPath)
	}
	engine.shape = inference.InputShape{
		Width:    input.Dim(2),
		Height:   input.Dim(1),
		Channels: 3,
		Order:    inference.ChannelOrderHWC,
	}

	return engine, nil
}

// Infer copies input into the interpreter, invokes it and returns a copy of
// the first output tensor.
func (e *TFLiteEngine) Infer(ctx context.Context, input []float32) (*inference.Output, error) {
	if e.interp == nil {
		return nil, fmt.Errorf("interpreter is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dst := e.interp.GetInputTensor(0).Float32s()
	if len(input) != len(dst) {
		return nil, fmt.Errorf("input holds %d floats, model expects %d", len(input), len(dst))
	}
	copy(dst, input)

	if status := e.interp.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("failed to run inference: %v", status)
	}

	output := e.interp.GetOutputTensor(0)
	if output == nil {
		return nil, fmt.Errorf("output tensor is nil")
	}
	if output.Type() != tflite.Float32 {
		return nil, fmt.Errorf("unsupported output tensor type %v", output.Type())
	}

	shape := make([]int64, output.NumDims())
	for i := range shape {
		shape[i] = int64(output.Dim(i))
	}

	return &inference.Output{
		Data:  append([]float32(nil), output.Float32s()...),
		Shape: shape,
	}, nil
}

// InputShape returns the interpreter's input layout.
func (e *TFLiteEngine) InputShape() inference.InputShape {
	return e.shape
}

// Close releases the interpreter and the model.
func (e *TFLiteEngine) Close() error {
	if e.interp != nil {
		e.interp.Delete()
		e.interp = nil
	}
	if e.model != nil {
		e.model.Delete()
		e.model = nil
	}
	return nil
}
