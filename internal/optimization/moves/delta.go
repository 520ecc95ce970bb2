package moves

import "github.com/copyleftdev/atsp/internal/atsp"

// NodeSwapDelta is the cost change of exchanging positions i and j. Only the
// edges around both positions change, so it is O(1) for any matrix.
//
// When the positions are adjacent the shared edge is counted once and its
// direction flips; the wraparound pair (0, n-1) is adjacent with n-1 first.
func NodeSwapDelta(inst *atsp.Instance, tour atsp.Tour, i, j int) int {
	if i == j {
		return 0
	}
	n := len(tour)
	if i > j {
		i, j = j, i
	}
	if i == 0 && j == n-1 {
		i, j = j, i
	}

	x, y := tour[i], tour[j]
	prevI := tour[(i+n-1)%n]
	nextJ := tour[(j+1)%n]

	if (i+1)%n == j {
		return inst.At(prevI, y) + inst.At(y, x) + inst.At(x, nextJ) -
			inst.At(prevI, x) - inst.At(x, y) - inst.At(y, nextJ)
	}

	nextI := tour[(i+1)%n]
	prevJ := tour[(j+n-1)%n]
	return inst.At(prevI, y) + inst.At(y, nextI) + inst.At(prevJ, x) + inst.At(x, nextJ) -
		inst.At(prevI, x) - inst.At(x, nextI) - inst.At(prevJ, y) - inst.At(y, nextJ)
}

// EdgeReversalDelta is the cost change of reversing positions i+1..j.
//
// On symmetric instances only the two boundary edges change (O(1)). On
// asymmetric instances every interior edge is traversed in the opposite
// direction afterwards, so their contributions are summed too (O(j-i)).
// Degenerate pairs return 0.
func EdgeReversalDelta(inst *atsp.Instance, tour atsp.Tour, i, j int) int {
	if i > j {
		i, j = j, i
	}
	n := len(tour)
	if j-i < 2 || (i == 0 && j == n-1) {
		return 0
	}

	delta := EdgeReversalBoundaryDelta(inst, tour, i, j)
	if inst.Symmetric() {
		return delta
	}
	for k := i + 1; k < j; k++ {
		a, b := tour[k], tour[k+1]
		delta += inst.At(b, a) - inst.At(a, b)
	}
	return delta
}

// EdgeReversalBoundaryDelta is the two-edge 2-opt formula. It equals the real
// delta only on symmetric instances; i < j and the pair must not be degenerate.
func EdgeReversalBoundaryDelta(inst *atsp.Instance, tour atsp.Tour, i, j int) int {
	n := len(tour)
	a, b := tour[i], tour[i+1]
	c, d := tour[j], tour[(j+1)%n]
	return inst.At(a, c) + inst.At(b, d) - inst.At(a, b) - inst.At(c, d)
}
