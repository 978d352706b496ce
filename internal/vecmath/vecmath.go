// Package vecmath holds small numeric helpers shared by the vector index and
// the embedding builders.
package vecmath

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// L2NormalizeInPlace normalizes vec to unit L2 norm.
// If vec is empty or all zeros, it is left unchanged.
func L2NormalizeInPlace(vec []float32) {
	if len(vec) == 0 {
		return
	}
	var sumSq float64
	for _, v := range vec {
		f := float64(v)
		sumSq += f * f
	}
	if sumSq <= 0 {
		return
	}
	invNorm := float32(1.0 / math.Sqrt(sumSq))
	for i := range vec {
		vec[i] *= invNorm
	}
}

// Dot returns the dot product of two equal-length vectors. Panics if the
// lengths differ, matching gonum's own contract.
func Dot(a, b []float32) float64 {
	ad := make([]float64, len(a))
	bd := make([]float64, len(b))
	for i, v := range a {
		ad[i] = float64(v)
	}
	for i, v := range b {
		bd[i] = float64(v)
	}
	return floats.Dot(ad, bd)
}

// CosineUnit returns the dot product of two already-unit-normalized vectors,
// which is their cosine similarity. Returns 0 for dimension mismatches or
// empty vectors rather than panicking, since callers deal with heterogeneous
// embedding modes.
func CosineUnit(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	return Dot(a, b)
}
