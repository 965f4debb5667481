package index

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when two vectors being compared differ in length.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// CosineSimilarity returns dot(a,b) / (|a| * |b|), or 0 when either norm is
// zero. Returns ErrDimensionMismatch when the vectors differ in length.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("cosine: got %d and %d: %w", len(a), len(b), ErrDimensionMismatch)
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
