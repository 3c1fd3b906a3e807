// Package inference - Profiled inference sessions.
package inference

import (
	"context"
	"sync"
	"time"
)

// Stats captures engine timing since creation or the last reset.
type Stats struct {
	InferenceCount int64         `json:"inference_count"`
	ErrorCount     int64         `json:"error_count"`
	TotalTime      time.Duration `json:"total_time"`
	AverageTime    time.Duration `json:"average_time"`
	LastTime       time.Duration `json:"last_time"`
}

// ProfiledEngine wraps an Engine with performance tracking.
//
// It also serializes calls into the wrapped engine: interpreter handles own
// preallocated tensors and are not safe for concurrent Infer calls.
type ProfiledEngine struct {
	engine Engine

	mu    sync.Mutex
	stats Stats
	now   func() time.Time
}

// NewProfiledEngine wraps engine.
func NewProfiledEngine(engine Engine) *ProfiledEngine {
	return &ProfiledEngine{engine: engine, now: time.Now}
}

// Infer executes the wrapped engine with performance tracking.
func (p *ProfiledEngine) Infer(ctx context.Context, input []float32) (*Output, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := p.now()
	out, err := p.engine.Infer(ctx, input)
	duration := p.now().Sub(start)

	p.stats.InferenceCount++
	p.stats.TotalTime += duration
	p.stats.LastTime = duration
	if err != nil {
		p.stats.ErrorCount++
	}

	return out, err
}

// InputShape returns the wrapped engine's input shape.
func (p *ProfiledEngine) InputShape() InputShape {
	return p.engine.InputShape()
}

// Close releases the wrapped engine.
func (p *ProfiledEngine) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.Close()
}

// Stats returns a snapshot of the performance counters.
func (p *ProfiledEngine) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := p.stats
	if stats.InferenceCount > 0 {
		stats.AverageTime = stats.TotalTime / time.Duration(stats.InferenceCount)
	}
	return stats
}

// ResetStats clears all performance counters
func (p *ProfiledEngine) ResetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = Stats{}
}
