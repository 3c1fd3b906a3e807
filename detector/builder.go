package detector

import (
	"errors"

	"github.com/nvr-ai/go-yolo/inference"
	"github.com/nvr-ai/go-yolo/inference/providers"
	"github.com/nvr-ai/go-yolo/labels"
	"github.com/nvr-ai/go-yolo/models/yolo"
)

// Builder assembles a Detector with a fluent API. The first error is kept
// and returned by Build; later calls are no-ops.
type Builder struct {
	config     Config
	engine     inference.Engine
	labels     *labels.Set
	ownsEngine bool
	err        error
}

// NewBuilder creates a builder starting from DefaultConfig.
//
// Returns:
//   - *Builder: The detector builder.
func NewBuilder() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the configuration.
//
// Arguments:
//   - cfg: The detector configuration. It is validated immediately.
//
// Returns:
//   - *Builder: The detector builder.
func (b *Builder) WithConfig(cfg Config) *Builder {
	if b.HasError() {
		return b
	}
	if err := cfg.Validate(); err != nil {
		b.err = err
		return b
	}
	b.config = cfg
	return b
}

// WithEngine uses an already created engine instead of loading
// Config.Provider. The caller keeps ownership and Detector.Close does not
// close it.
//
// Arguments:
//   - engine: The interpreter backend.
//
// Returns:
//   - *Builder: The detector builder.
func (b *Builder) WithEngine(engine inference.Engine) *Builder {
	if b.HasError() {
		return b
	}
	if engine == nil {
		b.err = errors.New("engine is nil")
		return b
	}
	b.engine = engine
	return b
}

// WithLabels sets the label set, overriding Config.LabelsPath.
//
// Arguments:
//   - set: The labels in class index order.
//
// Returns:
//   - *Builder: The detector builder.
func (b *Builder) WithLabels(set *labels.Set) *Builder {
	if b.HasError() {
		return b
	}
	if set.Len() == 0 {
		b.err = errors.New("label set is empty")
		return b
	}
	b.labels = set
	return b
}

// HasError checks if the builder has errors.
//
// Returns:
//   - bool: True if there are errors, false otherwise.
func (b *Builder) HasError() bool {
	return b.err != nil
}

// MustBuild builds the detector and panics if there is an error.
//
// Returns:
//   - *Detector: The detector.
func (b *Builder) MustBuild() *Detector {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}

// Build loads whatever was not supplied and returns the detector.
//
// Order of operations:
//  1. Labels: WithLabels, then Config.LabelsPath, then the COCO labels.
//  2. Post-processor: Decode and NMS options, with the label count filled in.
//  3. Engine: WithEngine, or a new engine from Config.Provider.
//
// Returns:
//   - *Detector: The detector. The caller owns Close.
//   - error: The first error recorded by the builder or raised while loading.
func (b *Builder) Build() (*Detector, error) {
	if b.HasError() {
		return nil, b.err
	}

	set := b.labels
	if set == nil {
		if b.config.LabelsPath != "" {
			loaded, err := labels.Load(b.config.LabelsPath)
			if err != nil {
				return nil, err
			}
			set = loaded
		} else {
			set = labels.COCO
		}
	}

	opts := yolo.Options{Decode: b.config.Decode, NMS: b.config.NMS}
	if opts.Decode.LabelCount == 0 {
		opts.Decode.LabelCount = set.Len()
	}
	model, err := yolo.NewModel(opts)
	if err != nil {
		return nil, err
	}

	engine := b.engine
	ownsEngine := false
	if engine == nil {
		engine, err = providers.NewEngine(b.config.Provider)
		if err != nil {
			return nil, err
		}
		ownsEngine = true
	}

	return &Detector{
		engine:     inference.NewProfiledEngine(engine),
		model:      model,
		labels:     set,
		config:     b.config,
		ownsEngine: ownsEngine,
	}, nil
}
