package explorers

import (
	"math/rand"

	"github.com/copyleftdev/atsp/internal/atsp"
	"github.com/copyleftdev/atsp/internal/optimization"
	"github.com/copyleftdev/atsp/internal/optimization/moves"
	"github.com/copyleftdev/atsp/internal/optimization/randutil"
)

// Greedy is first-improvement descent. The move list is materialised once and
// reshuffled at every step; the first move with a negative delta is applied.
type Greedy struct {
	rng      *rand.Rand
	moves    []moves.Move
	terminal bool
}

// NewGreedy builds the static neighbourhood for n nodes.
func NewGreedy(rng *rand.Rand, n int, kinds moves.KindSet) (*Greedy, error) {
	enum, err := moves.NewEnumerator(n, kinds)
	if err != nil {
		return nil, err
	}
	return &Greedy{rng: rng, moves: enum.Moves()}, nil
}

func (g *Greedy) Step(inst *atsp.Instance, tour atsp.Tour, rc *optimization.RunContext) {
	if g.terminal {
		return
	}
	randutil.Shuffle(g.moves, g.rng)
	for _, m := range g.moves {
		delta := m.Delta(inst, tour)
		rc.Evaluations++
		if delta < 0 {
			m.Apply(tour)
			rc.CurrentCost += delta
			return
		}
	}
	g.terminal = true
}

// ShouldStop reports a local optimum. It ignores time; the engine enforces
// the budget.
func (g *Greedy) ShouldStop(*optimization.RunContext) bool {
	return g.terminal
}

// Steepest is best-improvement descent over a fresh enumeration per step.
// Moves tied for the best delta are sampled uniformly.
type Steepest struct {
	rng      *rand.Rand
	enum     *moves.Enumerator
	ties     []moves.Move
	terminal bool
}

// NewSteepest validates the neighbourhood for n nodes.
func NewSteepest(rng *rand.Rand, n int, kinds moves.KindSet) (*Steepest, error) {
	enum, err := moves.NewEnumerator(n, kinds)
	if err != nil {
		return nil, err
	}
	return &Steepest{rng: rng, enum: enum}, nil
}

func (s *Steepest) Step(inst *atsp.Instance, tour atsp.Tour, rc *optimization.RunContext) {
	if s.terminal {
		return
	}
	best := 0
	s.ties = s.ties[:0]
	for m := range s.enum.All() {
		delta := m.Delta(inst, tour)
		rc.Evaluations++
		switch {
		case delta < best:
			best = delta
			s.ties = append(s.ties[:0], m)
		case delta == best && delta < 0:
			s.ties = append(s.ties, m)
		}
	}
	if len(s.ties) == 0 {
		s.terminal = true
		return
	}

	pick := s.ties[0]
	if len(s.ties) > 1 {
		pick = s.ties[s.rng.Intn(len(s.ties))]
	}
	pick.Apply(tour)
	rc.CurrentCost += best
}

func (s *Steepest) ShouldStop(*optimization.RunContext) bool {
	return s.terminal
}
