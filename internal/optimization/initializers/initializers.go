// Package initializers builds the starting tour of a run.
package initializers

import (
	"math/rand"

	"github.com/copyleftdev/atsp/internal/atsp"
	"github.com/copyleftdev/atsp/internal/optimization/randutil"
)

// UniformRandom shuffles the identity permutation.
type UniformRandom struct {
	rng *rand.Rand
}

// NewUniformRandom returns an initializer drawing from rng.
func NewUniformRandom(rng *rand.Rand) *UniformRandom {
	return &UniformRandom{rng: rng}
}

// Initialize returns a uniformly random tour.
func (u *UniformRandom) Initialize(inst *atsp.Instance) atsp.Tour {
	tour := atsp.Identity(inst.Dimension())
	randutil.Shuffle(tour, u.rng)
	return tour
}

// NearestNeighbor builds a tour greedily: from the start node it keeps
// appending the cheapest unvisited successor. Ties go to the lowest node index.
type NearestNeighbor struct {
	rng   *rand.Rand
	start int
}

// NewNearestNeighbor starts from a node drawn from rng.
func NewNearestNeighbor(rng *rand.Rand) *NearestNeighbor {
	return &NearestNeighbor{rng: rng}
}

// NewNearestNeighborFrom starts from a fixed node.
func NewNearestNeighborFrom(start int) *NearestNeighbor {
	return &NearestNeighbor{start: start}
}

// Initialize runs the O(n²) construction.
func (nn *NearestNeighbor) Initialize(inst *atsp.Instance) atsp.Tour {
	n := inst.Dimension()
	start := nn.start
	if nn.rng != nil {
		start = nn.rng.Intn(n)
	}
	if start < 0 || start >= n {
		start = 0
	}

	visited := make([]bool, n)
	tour := make(atsp.Tour, 0, n)
	tour = append(tour, start)
	visited[start] = true

	current := start
	for len(tour) < n {
		next := -1
		for candidate := 0; candidate < n; candidate++ {
			if visited[candidate] {
				continue
			}
			if next < 0 || inst.At(current, candidate) < inst.At(current, next) {
				next = candidate
			}
		}
		tour = append(tour, next)
		visited[next] = true
		current = next
	}
	return tour
}
