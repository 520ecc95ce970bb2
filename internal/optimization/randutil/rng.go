// Package randutil centralizes the seeded random sources of a run.
//
// Every component draws from its own *rand.Rand built here; nothing touches the
// global math/rand source, so a run is reproducible from its seed alone.
// A *rand.Rand is not safe for concurrent use and is never shared across runs.
package randutil

import "math/rand"

// New returns a deterministic generator for seed.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(int64(seed)))
}

// Derive mixes a run seed with a stream id (SplitMix64 finalizer) so that the
// initializer and the explorer of one run get decorrelated streams.
func Derive(seed uint64, stream uint64) *rand.Rand {
	x := seed ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return New(x)
}

// Shuffle performs an in-place Fisher–Yates shuffle.
func Shuffle[T any](s []T, rng *rand.Rand) {
	for i := len(s) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// Pair draws two distinct indices in [0, n). n must be at least 2.
func Pair(n int, rng *rand.Rand) (int, int) {
	i := rng.Intn(n)
	j := rng.Intn(n - 1)
	if j >= i {
		j++
	}
	return i, j
}
