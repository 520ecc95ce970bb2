package moves

import (
	"iter"
	"math/rand"
	"slices"

	"github.com/copyleftdev/atsp/internal/atsp"
	"github.com/copyleftdev/atsp/internal/optimization"
	"github.com/copyleftdev/atsp/internal/optimization/randutil"
)

// Enumerator yields every non-degenerate move for a dimension and a kind set.
// It holds no iteration state: each call to All restarts the same sequence.
type Enumerator struct {
	n     int
	kinds KindSet
}

// NewEnumerator validates the dimension and kind set.
func NewEnumerator(n int, kinds KindSet) (*Enumerator, error) {
	if err := ValidateDimension(n); err != nil {
		return nil, err
	}
	if err := kinds.Validate(); err != nil {
		return nil, err
	}
	return &Enumerator{n: n, kinds: kinds}, nil
}

// ValidateDimension rejects sizes below atsp.MinDimension and sizes the Code
// index fields cannot hold.
func ValidateDimension(n int) error {
	if n < atsp.MinDimension || n > MaxNodes {
		return optimization.WrapErrorf(optimization.ErrDimension,
			"dimension must be in [%d, %d] (got %d)", atsp.MinDimension, MaxNodes, n).
			WithComponent("moves").WithOperation("validate")
	}
	return nil
}

// NodeSwapCount is n(n-1)/2.
func NodeSwapCount(n int) int {
	return n * (n - 1) / 2
}

// EdgeReversalCount is n(n-1)/2 - n: pairs at distance >= 2 minus the
// wraparound pair.
func EdgeReversalCount(n int) int {
	return n*(n-1)/2 - n
}

// Size is the closed-form number of moves All yields.
func (e *Enumerator) Size() int {
	size := 0
	if e.kinds.Has(NodeSwap) {
		size += NodeSwapCount(e.n)
	}
	if e.kinds.Has(EdgeReversal) {
		size += EdgeReversalCount(e.n)
	}
	return size
}

// Kinds returns the enabled kind set.
func (e *Enumerator) Kinds() KindSet {
	return e.kinds
}

// All yields node swaps (i<j, lexicographic) followed by edge reversals
// (j >= i+2 without the wraparound pair, lexicographic).
func (e *Enumerator) All() iter.Seq[Move] {
	n := e.n
	return func(yield func(Move) bool) {
		if e.kinds.Has(NodeSwap) {
			for i := 0; i < n-1; i++ {
				for j := i + 1; j < n; j++ {
					if !yield(Move{Kind: NodeSwap, I: i, J: j}) {
						return
					}
				}
			}
		}
		if e.kinds.Has(EdgeReversal) {
			for i := 0; i < n-2; i++ {
				last := n - 1
				if i == 0 {
					last = n - 2
				}
				for j := i + 2; j <= last; j++ {
					if !yield(Move{Kind: EdgeReversal, I: i, J: j}) {
						return
					}
				}
			}
		}
	}
}

// Moves materialises the whole sequence.
func (e *Enumerator) Moves() []Move {
	out := make([]Move, 0, e.Size())
	return slices.AppendSeq(out, e.All())
}

// Random draws one move of a uniformly chosen enabled kind with uniformly
// drawn non-degenerate positions. When only one kind is enabled no draw is
// spent on the kind. For n == 3 there is no valid edge reversal and the
// returned move is a degenerate no-op.
func Random(rng *rand.Rand, n int, kinds KindSet) Move {
	kind := NodeSwap
	switch {
	case kinds == EdgeReversals:
		kind = EdgeReversal
	case kinds == AllKinds:
		if rng.Intn(2) == 1 {
			kind = EdgeReversal
		}
	}

	i, j := randutil.Pair(n, rng)
	m := New(kind, i, j)
	if kind == EdgeReversal && EdgeReversalCount(n) > 0 {
		for m.Degenerate(n) {
			i, j = randutil.Pair(n, rng)
			m = New(kind, i, j)
		}
	}
	return m
}
