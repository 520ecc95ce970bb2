// Package atsptest provides instance fixtures shared by the search tests.
package atsptest

import (
	"math/rand"
	"testing"

	"github.com/copyleftdev/atsp/internal/atsp"
)

// ScenarioMatrix is the 4-node asymmetric matrix used across the delta tests.
// The tour 0,1,2,3 costs 1+5+9+10 = 25 on it.
var ScenarioMatrix = [][]int{
	{0, 1, 2, 3},
	{4, 0, 5, 6},
	{7, 8, 0, 9},
	{10, 11, 12, 0},
}

// MustInstance builds an instance or fails the test.
func MustInstance(t testing.TB, rows [][]int) *atsp.Instance {
	t.Helper()

	inst, err := atsp.NewInstance("test", rows)
	if err != nil {
		t.Fatalf("failed to build instance: %v", err)
	}
	return inst
}

// RandomMatrix generates an n×n matrix with off-diagonal values in [min, max].
// When symmetric is set the lower triangle mirrors the upper one.
func RandomMatrix(n, min, max int, symmetric bool, seed int64) [][]int {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]int, n)
	for i := range rows {
		rows[i] = make([]int, n)
	}
	span := max - min + 1
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if symmetric && j < i {
				rows[i][j] = rows[j][i]
				continue
			}
			rows[i][j] = min + rng.Intn(span)
		}
	}
	return rows
}

// RandomInstance wraps RandomMatrix into an instance.
func RandomInstance(t testing.TB, n int, symmetric bool, seed int64) *atsp.Instance {
	t.Helper()
	return MustInstance(t, RandomMatrix(n, 1, 100, symmetric, seed))
}

// RandomTour returns a seeded random permutation of 0..n-1.
func RandomTour(n int, seed int64) atsp.Tour {
	rng := rand.New(rand.NewSource(seed))
	tour := atsp.Identity(n)
	rng.Shuffle(n, func(i, j int) { tour[i], tour[j] = tour[j], tour[i] })
	return tour
}
