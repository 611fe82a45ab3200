package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVector(t *testing.T) {
	t.Run("normalizes to unit length", func(t *testing.T) {
		v := NormalizeVector([]float32{3, 4})
		assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
		assert.InDelta(t, 0.8, float64(v[1]), 1e-6)
	})

	t.Run("zero vector stays zero", func(t *testing.T) {
		v := NormalizeVector([]float32{0, 0, 0})
		assert.Equal(t, []float32{0, 0, 0}, v)
	})

	t.Run("empty vector", func(t *testing.T) {
		assert.Empty(t, NormalizeVector(nil))
	})

	t.Run("does not mutate input", func(t *testing.T) {
		in := []float32{3, 4}
		_ = NormalizeVector(in)
		assert.Equal(t, []float32{3, 4}, in)
	})
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"unnormalized inputs", []float32{2, 0}, []float32{5, 0}, 1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			assert.InDelta(t, tt.want, float64(got), 1e-6)
		})
	}
}
