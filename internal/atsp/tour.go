package atsp

import (
	"errors"
	"fmt"
)

// Post-hoc validation failures. They are reporting conditions, not crashes.
var (
	ErrDimensionMismatch = errors.New("tour length does not match instance dimension")
	ErrLengthMismatch    = errors.New("tour is not a permutation: duplicate nodes")
	ErrOutOfRange        = errors.New("tour node outside [0, dimension)")
)

// Tour is an ordered list of node indices read cyclically: the edge after the
// last node returns to the first.
type Tour []int

// Identity returns the tour 0, 1, ..., n-1.
func Identity(n int) Tour {
	t := make(Tour, n)
	for i := range t {
		t[i] = i
	}
	return t
}

// Clone returns an independent copy.
func (t Tour) Clone() Tour {
	c := make(Tour, len(t))
	copy(c, t)
	return c
}

// Equal reports whether both tours list the same nodes in the same order.
func (t Tour) Equal(other Tour) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// Validate checks the permutation property against dimension.
func (t Tour) Validate(dimension int) error {
	if len(t) != dimension {
		return fmt.Errorf("%w: got %d nodes, want %d", ErrDimensionMismatch, len(t), dimension)
	}
	seen := make([]bool, dimension)
	for i, v := range t {
		if v < 0 || v >= dimension {
			return fmt.Errorf("%w: tour[%d]=%d", ErrOutOfRange, i, v)
		}
		if seen[v] {
			return fmt.Errorf("%w: node %d repeated at position %d", ErrLengthMismatch, v, i)
		}
		seen[v] = true
	}
	return nil
}

// Validate checks that tour is a permutation of this instance's nodes.
func (inst *Instance) Validate(tour Tour) error {
	return tour.Validate(inst.dimension)
}
