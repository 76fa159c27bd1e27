package model

import (
	"errors"
	"fmt"
)

// DefaultDimension is the dimensionality of the shared vector space.
const DefaultDimension = 768

// ErrDimensionMismatch is returned whenever a vector does not match the space.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// VectorSpace is the single fixed-dimension space shared by signals,
// entities and trends.
type VectorSpace struct {
	Dimension int `json:"dimension"`
}

// NewVectorSpace returns a space of the given dimension, DefaultDimension if dim <= 0.
func NewVectorSpace(dim int) VectorSpace {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return VectorSpace{Dimension: dim}
}

// Validate fails if v does not have the space's dimension.
func (s VectorSpace) Validate(v []float32) error {
	if len(v) != s.Dimension {
		return fmt.Errorf("%w: got %d want %d", ErrDimensionMismatch, len(v), s.Dimension)
	}
	return nil
}

// SquaredL2 returns the squared euclidean distance between a and b.
func SquaredL2(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum, nil
}
