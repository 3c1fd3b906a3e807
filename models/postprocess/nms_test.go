package postprocess

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(l, t, r, b float32) images.Rect {
	return images.Rect{Left: l, Top: t, Right: r, Bottom: b}
}

func randomDetections(rng *rand.Rand, n int) []Result {
	dets := make([]Result, n)
	for i := range dets {
		x := rng.Float32() * 500
		y := rng.Float32() * 500
		dets[i] = Result{
			Box:   box(x, y, x+10+rng.Float32()*90, y+10+rng.Float32()*90),
			Score: rng.Float32(),
			Class: rng.Intn(3),
		}
	}
	return dets
}

// TestApplyGreedyNMS_Scenarios covers the reference suppression scenarios.
func TestApplyGreedyNMS_Scenarios(t *testing.T) {
	a := Result{Box: box(0, 0, 10, 10), Score: 0.9}
	b := Result{Box: box(1, 1, 11, 11), Score: 0.8}
	c := Result{Box: box(50, 50, 60, 60), Score: 0.7}

	tests := []struct {
		name     string
		input    []Result
		config   NMSConfig
		expected []Result
	}{
		{
			name:     "overlapping box suppressed, distant box kept",
			input:    []Result{a, b, c},
			config:   DefaultNMSConfig(),
			expected: []Result{a, c},
		},
		{
			name:     "input order does not matter",
			input:    []Result{c, b, a},
			config:   DefaultNMSConfig(),
			expected: []Result{a, c},
		},
		{
			name:     "empty input",
			input:    []Result{},
			config:   DefaultNMSConfig(),
			expected: []Result{},
		},
		{
			name:     "nil input",
			input:    nil,
			config:   DefaultNMSConfig(),
			expected: []Result{},
		},
		{
			name:     "threshold above overlap keeps both",
			input:    []Result{a, b},
			config:   NMSConfig{IoUThreshold: 0.7},
			expected: []Result{a, b},
		},
		{
			name: "IoU exactly at threshold suppresses",
			input: []Result{
				{Box: box(0, 0, 10, 10), Score: 0.9},
				{Box: box(0, 0, 10, 5), Score: 0.8}, // IoU = 50 / 100
			},
			config:   NMSConfig{IoUThreshold: 0.5},
			expected: []Result{{Box: box(0, 0, 10, 10), Score: 0.9}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ApplyGreedyNMS(tt.input, tt.config)
			require.NotNil(t, result)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestApplyGreedyNMS_ClassAgnosticByDefault(t *testing.T) {
	person := Result{Box: box(0, 0, 10, 10), Score: 0.9, Class: 0}
	car := Result{Box: box(1, 1, 11, 11), Score: 0.8, Class: 2}

	assert.Equal(t, []Result{person}, ApplyGreedyNMS([]Result{person, car}, DefaultNMSConfig()))

	classAware := DefaultNMSConfig()
	classAware.ClassAware = true
	assert.Equal(t, []Result{person, car}, ApplyGreedyNMS([]Result{person, car}, classAware))
}

// TestApplyGreedyNMS_TiesKeepInputOrder pins the tie-break: equal scores are
// considered in their original sequence position.
func TestApplyGreedyNMS_TiesKeepInputOrder(t *testing.T) {
	first := Result{Box: box(0, 0, 10, 10), Score: 0.5, Class: 1}
	second := Result{Box: box(0, 0, 10, 10), Score: 0.5, Class: 2}

	assert.Equal(t, []Result{first}, ApplyGreedyNMS([]Result{first, second}, DefaultNMSConfig()))
	assert.Equal(t, []Result{second}, ApplyGreedyNMS([]Result{second, first}, DefaultNMSConfig()))
}

func TestApplyGreedyNMS_DoesNotModifyInput(t *testing.T) {
	input := []Result{
		{Box: box(50, 50, 60, 60), Score: 0.1},
		{Box: box(0, 0, 10, 10), Score: 0.9},
	}
	snapshot := append([]Result(nil), input...)

	_ = ApplyGreedyNMS(input, DefaultNMSConfig())
	assert.Equal(t, snapshot, input)
}

// TestApplyGreedyNMS_Properties checks idempotence and monotonicity on random input.
func TestApplyGreedyNMS_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	config := DefaultNMSConfig()

	for round := 0; round < 50; round++ {
		input := randomDetections(rng, 1+rng.Intn(200))
		once := ApplyGreedyNMS(input, config)
		twice := ApplyGreedyNMS(once, config)

		assert.Equal(t, once, twice, "NMS must be idempotent")
		assert.LessOrEqual(t, len(once), len(input))
		assert.Equal(t, SortByScore(input)[0], once[0], "highest-confidence box must survive")

		for i := range once {
			for j := i + 1; j < len(once); j++ {
				assert.Less(t, images.CalculateIoU(once[i].Box, once[j].Box), config.IoUThreshold)
			}
			if i > 0 {
				assert.GreaterOrEqual(t, once[i-1].Score, once[i].Score)
			}
		}
	}
}

func TestApplyBatchNMS(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	batches := make([][]Result, 17)
	for i := range batches {
		batches[i] = randomDetections(rng, rng.Intn(60))
	}

	for _, workers := range []int{0, 1, 4, 64} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			config := DefaultNMSConfig()
			config.NumWorkers = workers

			result := ApplyBatchNMS(batches, config)
			require.Len(t, result, len(batches))
			for i := range batches {
				assert.Equal(t, ApplyGreedyNMS(batches[i], config), result[i])
			}
		})
	}

	assert.Empty(t, ApplyBatchNMS(nil, DefaultNMSConfig()))
}

func TestSortByScore(t *testing.T) {
	input := []Result{{Score: 0.5}, {Score: 0.9}, {Score: 0.7}}
	sorted := SortByScore(input)

	assert.Equal(t, []Result{{Score: 0.9}, {Score: 0.7}, {Score: 0.5}}, sorted)
	assert.Equal(t, float32(0.5), input[0].Score, "input must be left untouched")
}

func BenchmarkApplyGreedyNMS(b *testing.B) {
	for _, n := range []int{100, 1000, 5000} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			dets := randomDetections(rand.New(rand.NewSource(1)), n)

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				_ = ApplyGreedyNMS(dets, DefaultNMSConfig())
			}
		})
	}
}
