package search

import (
	"github.com/copyleftdev/atsp/internal/atsp"
	"github.com/copyleftdev/atsp/internal/optimization"
	"github.com/copyleftdev/atsp/internal/optimization/explorers"
	"github.com/copyleftdev/atsp/internal/optimization/initializers"
	"github.com/copyleftdev/atsp/internal/optimization/moves"
	"github.com/copyleftdev/atsp/internal/optimization/randutil"
)

// Random streams derived from the run seed.
const (
	streamInitializer uint64 = 1
	streamExplorer    uint64 = 2
)

// New validates cfg against inst and builds a ready-to-run engine. Options
// given here override the ones derived from cfg.
func New(cfg Config, inst *atsp.Instance, opts ...Option) (*Engine, error) {
	alg, err := ParseAlgorithm(string(cfg.Algorithm))
	if err != nil {
		return nil, err
	}
	cfg.Algorithm = alg
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, optimization.Invalidf("search", "new", "instance is nil")
	}
	n := inst.Dimension()
	if err := moves.ValidateDimension(n); err != nil {
		return nil, err
	}

	initializer := NewInitializer(cfg)
	explorer, err := NewExplorer(cfg, n)
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithTimeBudget(cfg.TimeBudget),
		WithHistory(cfg.RecordHistory),
		WithLabel(string(cfg.Algorithm)),
	}
	return NewEngine(inst, initializer, explorer, append(base, opts...)...), nil
}

// NewInitializer picks the starting-tour construction for cfg.
func NewInitializer(cfg Config) optimization.Initializer {
	rng := randutil.Derive(cfg.Seed, streamInitializer)
	if cfg.NearestNeighbor || cfg.Algorithm == AlgorithmNNHeuristic {
		return initializers.NewNearestNeighbor(rng)
	}
	return initializers.NewUniformRandom(rng)
}

// NewExplorer builds the strategy selected by cfg for n nodes.
func NewExplorer(cfg Config, n int) (optimization.Explorer, error) {
	rng := randutil.Derive(cfg.Seed, streamExplorer)
	switch cfg.Algorithm {
	case AlgorithmNNHeuristic:
		return explorers.NoOp{}, nil
	case AlgorithmRandom:
		return explorers.NewRandom(rng, cfg.MaxIterations), nil
	case AlgorithmRandomWalk:
		return explorers.NewRandomWalk(rng, cfg.Moves, cfg.MaxIterations)
	case AlgorithmGreedy:
		return explorers.NewGreedy(rng, n, cfg.Moves)
	case AlgorithmSteepest:
		return explorers.NewSteepest(rng, n, cfg.Moves)
	case AlgorithmAnnealing:
		return explorers.NewAnnealing(rng, cfg.Moves, explorers.AnnealingConfig{
			InitialTemperature:  cfg.InitialTemperature,
			CoolingRate:         cfg.CoolingRate,
			ChainLength:         cfg.ChainLengthMultiplier * n,
			ToleranceIterations: cfg.ToleranceIterations,
		})
	case AlgorithmTabu:
		return explorers.NewTabu(rng, n, cfg.Moves, explorers.TabuConfig{
			Tenure:            cfg.TabuTenureMultiplier * n,
			CandidateListSize: cfg.CandidateListSize,
			Patience:          cfg.Patience,
		})
	}
	return nil, optimization.Invalidf("search", "new", "unknown algorithm %q", cfg.Algorithm)
}
