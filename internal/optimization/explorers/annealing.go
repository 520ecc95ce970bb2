package explorers

import (
	"math"
	"math/rand"

	"github.com/copyleftdev/atsp/internal/atsp"
	"github.com/copyleftdev/atsp/internal/optimization"
	"github.com/copyleftdev/atsp/internal/optimization/moves"
)

// DefaultMinTemperature is the absolute temperature floor that ends annealing.
const DefaultMinTemperature = 0.01

// AnnealingConfig parameterises simulated annealing.
type AnnealingConfig struct {
	InitialTemperature float64
	// CoolingRate multiplies the temperature once per chain, in (0, 1).
	CoolingRate float64
	// ChainLength is the number of attempted steps held at one temperature.
	ChainLength int
	// ToleranceIterations × ChainLength consecutive rejections end the run.
	ToleranceIterations int
	// MinTemperature defaults to DefaultMinTemperature when zero.
	MinTemperature float64
}

// Validate rejects non-finite or non-positive parameters.
func (c AnnealingConfig) Validate() error {
	const component = "annealing"
	if math.IsNaN(c.InitialTemperature) || math.IsInf(c.InitialTemperature, 0) || c.InitialTemperature <= 0 {
		return optimization.Invalidf(component, "validate", "initial temperature must be finite and > 0 (got %v)", c.InitialTemperature)
	}
	if math.IsNaN(c.CoolingRate) || c.CoolingRate <= 0 || c.CoolingRate >= 1 {
		return optimization.Invalidf(component, "validate", "cooling rate must lie in (0,1) (got %v)", c.CoolingRate)
	}
	if c.ChainLength < 1 {
		return optimization.Invalidf(component, "validate", "chain length must be >= 1 (got %d)", c.ChainLength)
	}
	if c.ToleranceIterations < 1 {
		return optimization.Invalidf(component, "validate", "tolerance iterations must be >= 1 (got %d)", c.ToleranceIterations)
	}
	if math.IsNaN(c.MinTemperature) || c.MinTemperature < 0 {
		return optimization.Invalidf(component, "validate", "min temperature must be >= 0 (got %v)", c.MinTemperature)
	}
	return nil
}

// Annealing is simulated annealing with Metropolis acceptance. The cooling
// period counts attempted steps, accepted or not.
type Annealing struct {
	cfg   AnnealingConfig
	rng   *rand.Rand
	kinds moves.KindSet

	temperature   float64
	attempts      int
	sinceAccepted int
}

// NewAnnealing validates cfg and the kind set.
func NewAnnealing(rng *rand.Rand, kinds moves.KindSet, cfg AnnealingConfig) (*Annealing, error) {
	if cfg.MinTemperature == 0 {
		cfg.MinTemperature = DefaultMinTemperature
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := kinds.Validate(); err != nil {
		return nil, err
	}
	return &Annealing{
		cfg:         cfg,
		rng:         rng,
		kinds:       kinds,
		temperature: cfg.InitialTemperature,
	}, nil
}

func (a *Annealing) Step(inst *atsp.Instance, tour atsp.Tour, rc *optimization.RunContext) {
	m := moves.Random(a.rng, len(tour), a.kinds)
	delta := m.Delta(inst, tour)
	rc.Evaluations++

	accept := delta < 0
	if !accept {
		accept = a.rng.Float64() < math.Exp(-float64(delta)/a.temperature)
	}
	if accept {
		m.Apply(tour)
		rc.CurrentCost += delta
		a.sinceAccepted = 0
	} else {
		a.sinceAccepted++
	}

	a.attempts++
	if a.attempts%a.cfg.ChainLength == 0 {
		a.temperature *= a.cfg.CoolingRate
	}
}

func (a *Annealing) ShouldStop(*optimization.RunContext) bool {
	return a.sinceAccepted > a.cfg.ToleranceIterations*a.cfg.ChainLength ||
		a.temperature < a.cfg.MinTemperature
}

// Temperature returns the current temperature.
func (a *Annealing) Temperature() float64 {
	return a.temperature
}
