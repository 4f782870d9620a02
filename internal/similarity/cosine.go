// Package similarity implements cosine similarity and the textual vector codec
// used to persist embeddings.
package similarity

import (
	"errors"
	"fmt"
	"math"

	"github.com/spigell/cv-matcher/internal/cverrors"
)

// ErrNotFinite is returned when a vector holds NaN or Inf components.
var ErrNotFinite = errors.New("similarity is not finite")

// Cosine returns dot(a, b) / (|a| * |b|), always within [-1, 1].
// A zero-norm vector yields exactly 0. Vectors of different length are a
// programming error and return cverrors.ErrDimensionMismatch.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", cverrors.ErrDimensionMismatch, len(a), len(b))
	}

	scaleA, scaleB := maxAbs(a), maxAbs(b)
	if scaleA == 0 || scaleB == 0 {
		return 0, nil
	}

	// Components are scaled into [-1, 1] so the squared sums cannot overflow.
	var dot, normA, normB float64
	for i := range a {
		x, y := a[i]/scaleA, b[i]/scaleB
		dot += x * y
		normA += x * x
		normB += y * y
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, ErrNotFinite
	}
	return math.Max(-1, math.Min(1, sim)), nil
}

// Norm returns the Euclidean length of v.
func Norm(v []float64) float64 {
	scale := maxAbs(v)
	if scale == 0 || math.IsInf(scale, 0) {
		return scale
	}

	var sum float64
	for _, x := range v {
		x /= scale
		sum += x * x
	}
	return scale * math.Sqrt(sum)
}

func maxAbs(v []float64) float64 {
	var m float64
	for _, x := range v {
		if ax := math.Abs(x); ax > m || math.IsNaN(ax) {
			m = ax
		}
	}
	return m
}
