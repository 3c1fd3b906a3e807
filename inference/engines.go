// Package inference - Inference engine interface and implementations
package inference

// EngineType is the type of the engine
type EngineType string

const (
	// EngineONNX is the ONNX engine that uses the onnxruntime library
	EngineONNX EngineType = "onnx"
	// EngineTFLite is the TensorFlow Lite engine
	EngineTFLite EngineType = "tflite"
)

// Engines is a list of all supported engines
var Engines = []EngineType{EngineONNX, EngineTFLite}

// Valid reports whether t is one of Engines.
func (t EngineType) Valid() bool {
	for _, e := range Engines {
		if e == t {
			return true
		}
	}
	return false
}
