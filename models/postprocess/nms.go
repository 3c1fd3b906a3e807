// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"runtime"
	"sort"
	"sync"

	"github.com/nvr-ai/go-yolo/images"
)

// DefaultIoUThreshold is the overlap at which a lower-scored box is suppressed.
const DefaultIoUThreshold float32 = 0.5

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// Overlap threshold for suppression. Boxes with IoU >= IoUThreshold against
	// a kept box are dropped.
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"`
	// If true, suppress only within the same class. The default suppresses
	// across all classes jointly.
	ClassAware bool `json:"class_aware" yaml:"class_aware"`
	// Number of goroutines used by ApplyBatchNMS. Zero uses GOMAXPROCS.
	NumWorkers int `json:"num_workers" yaml:"num_workers"`
}

// DefaultNMSConfig returns the class-agnostic configuration with an IoU
// threshold of 0.5.
func DefaultNMSConfig() NMSConfig {
	return NMSConfig{IoUThreshold: DefaultIoUThreshold}
}

// SortByScore returns a copy of detections ordered by descending score.
// Ties keep their input order.
func SortByScore(detections []Result) []Result {
	sorted := make([]Result, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	return sorted
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression.
//
// The input is sorted by descending confidence (stable, on a copy). The
// highest remaining box is kept and every remaining box whose IoU with it is
// at or above config.IoUThreshold is removed, until nothing is left.
//
// The cost is O(n^2) in the number of candidates. That is fine for the few
// hundred boxes a YOLO head leaves after confidence filtering, and becomes the
// bottleneck once n reaches the thousands.
//
// Arguments:
//   - detections: Candidate detections in any order. The slice is not modified.
//   - config: NMS configuration.
//
// Returns:
//   - The kept detections in selection order. Empty input yields an empty,
//     non-nil slice.
func ApplyGreedyNMS(detections []Result, config NMSConfig) []Result {
	n := len(detections)
	filtered := make([]Result, 0, n)
	if n == 0 {
		return filtered
	}

	sorted := SortByScore(detections)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := sorted[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if config.ClassAware && sorted[j].Class != anchor.Class {
				continue
			}
			if images.CalculateIoU(anchor.Box, sorted[j].Box) >= config.IoUThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}

// ApplyBatchNMS filters several independent detection sets concurrently.
//
// Each batch is handed to ApplyGreedyNMS by a pool of config.NumWorkers
// goroutines. ApplyGreedyNMS shares no state, so no locking is involved.
//
// Arguments:
//   - batches: One slice of candidates per image.
//   - config: NMS configuration applied to every batch.
//
// Returns:
//   - The filtered detections, index-aligned with batches.
func ApplyBatchNMS(batches [][]Result, config NMSConfig) [][]Result {
	out := make([][]Result, len(batches))
	if len(batches) == 0 {
		return out
	}

	workers := config.NumWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(batches) {
		workers = len(batches)
	}

	jobs := make(chan int, len(batches))
	for i := range batches {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = ApplyGreedyNMS(batches[i], config)
			}
		}()
	}
	wg.Wait()

	return out
}
