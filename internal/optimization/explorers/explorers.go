// Package explorers implements the local-search strategies driven by the
// search engine. Every explorer owns its seeded generator and mutates the tour
// it is handed; the engine owns the tour and the run context.
package explorers

import (
	"math/rand"

	"github.com/copyleftdev/atsp/internal/atsp"
	"github.com/copyleftdev/atsp/internal/optimization"
	"github.com/copyleftdev/atsp/internal/optimization/moves"
	"github.com/copyleftdev/atsp/internal/optimization/randutil"
)

var (
	_ optimization.Explorer = NoOp{}
	_ optimization.Explorer = (*Random)(nil)
	_ optimization.Explorer = (*RandomWalk)(nil)
	_ optimization.Explorer = (*Greedy)(nil)
	_ optimization.Explorer = (*Steepest)(nil)
	_ optimization.Explorer = (*Annealing)(nil)
	_ optimization.Explorer = (*Tabu)(nil)
)

// NoOp never touches the tour and always asks to stop. Paired with a
// constructive initializer it yields a pure construction heuristic.
type NoOp struct{}

func (NoOp) Step(*atsp.Instance, atsp.Tour, *optimization.RunContext) {}

func (NoOp) ShouldStop(*optimization.RunContext) bool { return true }

// Random replaces the tour with a fresh random permutation every step and
// pays a full O(n) evaluation for it.
type Random struct {
	rng           *rand.Rand
	maxIterations int
}

// NewRandom caps the run at maxIterations steps; 0 leaves the cap to the
// engine's time budget.
func NewRandom(rng *rand.Rand, maxIterations int) *Random {
	return &Random{rng: rng, maxIterations: maxIterations}
}

func (r *Random) Step(inst *atsp.Instance, tour atsp.Tour, rc *optimization.RunContext) {
	randutil.Shuffle(tour, r.rng)
	rc.CurrentCost = inst.Cost(tour)
	rc.Evaluations++
}

func (r *Random) ShouldStop(rc *optimization.RunContext) bool {
	return r.maxIterations > 0 && rc.Iterations >= r.maxIterations
}

// RandomWalk applies one random move per step whatever its delta.
type RandomWalk struct {
	rng           *rand.Rand
	kinds         moves.KindSet
	maxIterations int
	last          moves.Move
}

// NewRandomWalk draws moves of the given kinds.
func NewRandomWalk(rng *rand.Rand, kinds moves.KindSet, maxIterations int) (*RandomWalk, error) {
	if err := kinds.Validate(); err != nil {
		return nil, err
	}
	return &RandomWalk{rng: rng, kinds: kinds, maxIterations: maxIterations}, nil
}

func (w *RandomWalk) Step(inst *atsp.Instance, tour atsp.Tour, rc *optimization.RunContext) {
	m := moves.Random(w.rng, len(tour), w.kinds)
	delta := m.Delta(inst, tour)
	m.Apply(tour)
	rc.CurrentCost += delta
	rc.Evaluations++
	w.last = m
}

func (w *RandomWalk) ShouldStop(rc *optimization.RunContext) bool {
	return w.maxIterations > 0 && rc.Iterations >= w.maxIterations
}

// Last returns the move applied by the latest step.
func (w *RandomWalk) Last() moves.Move {
	return w.last
}
