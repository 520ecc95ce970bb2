package search

import (
	"math"
	"strings"
	"time"

	"github.com/copyleftdev/atsp/internal/optimization"
	"github.com/copyleftdev/atsp/internal/optimization/moves"
)

// Algorithm names a search strategy.
type Algorithm string

const (
	AlgorithmRandom      Algorithm = "random"
	AlgorithmRandomWalk  Algorithm = "random-walk"
	AlgorithmGreedy      Algorithm = "greedy-search"
	AlgorithmSteepest    Algorithm = "steepest-search"
	AlgorithmAnnealing   Algorithm = "simulated-annealing"
	AlgorithmTabu        Algorithm = "tabu-search"
	AlgorithmNNHeuristic Algorithm = "nn-heuristic"
)

// Algorithms lists every supported algorithm.
func Algorithms() []Algorithm {
	return []Algorithm{
		AlgorithmRandom,
		AlgorithmRandomWalk,
		AlgorithmGreedy,
		AlgorithmSteepest,
		AlgorithmAnnealing,
		AlgorithmTabu,
		AlgorithmNNHeuristic,
	}
}

// ParseAlgorithm accepts the canonical names plus a few short aliases.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "random", "r":
		return AlgorithmRandom, nil
	case "random-walk", "rw":
		return AlgorithmRandomWalk, nil
	case "greedy-search", "greedy", "g":
		return AlgorithmGreedy, nil
	case "steepest-search", "steepest", "s":
		return AlgorithmSteepest, nil
	case "simulated-annealing", "annealing", "sa":
		return AlgorithmAnnealing, nil
	case "tabu-search", "tabu", "ts":
		return AlgorithmTabu, nil
	case "nn-heuristic", "nn", "nearest-neighbor":
		return AlgorithmNNHeuristic, nil
	}
	return "", optimization.Invalidf("search", "parse", "unknown algorithm %q", s)
}

// UnmarshalText accepts every name ParseAlgorithm does.
func (a *Algorithm) UnmarshalText(text []byte) error {
	alg, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = alg
	return nil
}

// Config is everything a run needs besides the instance.
type Config struct {
	Seed      uint64    `json:"seed" yaml:"seed"`
	Algorithm Algorithm `json:"algorithm" yaml:"algorithm"`
	// NearestNeighbor seeds the run with a nearest-neighbour tour instead of
	// a uniformly random one.
	NearestNeighbor bool          `json:"nearest_neighbor" yaml:"nearest_neighbor"`
	Moves           moves.KindSet `json:"moves" yaml:"moves"`

	// TimeBudget of 0 leaves termination to the explorer.
	TimeBudget    time.Duration `json:"time_budget" yaml:"time_budget"`
	MaxIterations int           `json:"max_iterations" yaml:"max_iterations"`

	InitialTemperature    float64 `json:"initial_temperature" yaml:"initial_temperature"`
	CoolingRate           float64 `json:"cooling_rate" yaml:"cooling_rate"`
	ChainLengthMultiplier int     `json:"chain_length_multiplier" yaml:"chain_length_multiplier"`
	ToleranceIterations   int     `json:"tolerance_iterations" yaml:"tolerance_iterations"`

	TabuTenureMultiplier int `json:"tabu_tenure_multiplier" yaml:"tabu_tenure_multiplier"`
	CandidateListSize    int `json:"candidate_list_size" yaml:"candidate_list_size"`
	Patience             int `json:"patience" yaml:"patience"`

	RecordHistory bool `json:"record_history" yaml:"record_history"`
}

// DefaultConfig returns a steepest-descent run over both move kinds.
func DefaultConfig() Config {
	return Config{
		Algorithm:     AlgorithmSteepest,
		Moves:         moves.AllKinds,
		MaxIterations: 1000,

		InitialTemperature:    1000.0,
		CoolingRate:           0.95,
		ChainLengthMultiplier: 1,
		ToleranceIterations:   10,

		TabuTenureMultiplier: 1,
		CandidateListSize:    20,
		Patience:             100,
	}
}

// Validate performs the checks that do not need the instance.
func (c Config) Validate() error {
	const component = "search"
	alg, err := ParseAlgorithm(string(c.Algorithm))
	if err != nil {
		return err
	}
	if err := c.Moves.Validate(); err != nil {
		return err
	}
	if c.TimeBudget < 0 {
		return optimization.Invalidf(component, "validate", "time budget must be >= 0 (got %s)", c.TimeBudget)
	}
	if c.MaxIterations < 0 {
		return optimization.Invalidf(component, "validate", "max iterations must be >= 0 (got %d)", c.MaxIterations)
	}

	switch alg {
	case AlgorithmRandom, AlgorithmRandomWalk:
		if c.MaxIterations == 0 && c.TimeBudget == 0 {
			return optimization.Invalidf(component, "validate", "%s needs max iterations or a time budget", alg)
		}
	case AlgorithmAnnealing:
		if !positiveFinite(c.InitialTemperature) {
			return optimization.Invalidf(component, "validate", "initial temperature must be finite and > 0 (got %v)", c.InitialTemperature)
		}
		if !positiveFinite(c.CoolingRate) || c.CoolingRate >= 1 {
			return optimization.Invalidf(component, "validate", "cooling rate must lie in (0,1) (got %v)", c.CoolingRate)
		}
		if c.ChainLengthMultiplier < 1 {
			return optimization.Invalidf(component, "validate", "chain length multiplier must be >= 1 (got %d)", c.ChainLengthMultiplier)
		}
		if c.ToleranceIterations < 1 {
			return optimization.Invalidf(component, "validate", "tolerance iterations must be >= 1 (got %d)", c.ToleranceIterations)
		}
	case AlgorithmTabu:
		if c.TabuTenureMultiplier < 1 {
			return optimization.Invalidf(component, "validate", "tabu tenure multiplier must be >= 1 (got %d)", c.TabuTenureMultiplier)
		}
		if c.CandidateListSize < 1 {
			return optimization.Invalidf(component, "validate", "candidate list size must be >= 1 (got %d)", c.CandidateListSize)
		}
		if c.Patience < 1 {
			return optimization.Invalidf(component, "validate", "patience must be >= 1 (got %d)", c.Patience)
		}
	}
	return nil
}

func positiveFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
