package optimization

import (
	"time"

	"github.com/copyleftdev/atsp/internal/atsp"
)

// Explorer is one local-search strategy. Step runs a single iteration: it may
// mutate tour in place and must keep rc.CurrentCost equal to the true cost of
// tour. ShouldStop is the strategy's own termination predicate.
type Explorer interface {
	Step(inst *atsp.Instance, tour atsp.Tour, rc *RunContext)
	ShouldStop(rc *RunContext) bool
}

// Initializer produces the starting tour of a run.
type Initializer interface {
	Initialize(inst *atsp.Instance) atsp.Tour
}

// Sample is one point of the improvement history.
type Sample struct {
	Evaluations int `json:"evaluations" yaml:"evaluations"`
	BestCost    int `json:"best_cost" yaml:"best_cost"`
}

// RunContext is the per-run record threaded through every Step call. It is
// owned by the engine and never shared between runs.
type RunContext struct {
	Iterations                   int `json:"iterations"`
	Evaluations                  int `json:"evaluations"`
	Steps                        int `json:"steps"`
	InitialCost                  int `json:"initial_cost"`
	CurrentCost                  int `json:"current_cost"`
	BestCost                     int `json:"best_cost"`
	IterationsWithoutImprovement int `json:"iterations_without_improvement"`

	// History is appended on every improvement when recording is enabled.
	History []Sample `json:"history,omitempty"`
}

// NewRunContext seeds a context with the cost of the initial tour.
func NewRunContext(initialCost int) *RunContext {
	return &RunContext{
		InitialCost: initialCost,
		CurrentCost: initialCost,
		BestCost:    initialCost,
	}
}

// Snapshot returns a copy that does not alias the history slice.
func (rc *RunContext) Snapshot() RunContext {
	c := *rc
	if rc.History != nil {
		c.History = append([]Sample(nil), rc.History...)
	}
	return c
}

// StopReason names why a run terminated.
type StopReason string

const (
	StopExplorer   StopReason = "explorer"
	StopTimeBudget StopReason = "time_budget"
	StopCancelled  StopReason = "cancelled"
)

// Result is what a finished run hands to its callers.
type Result struct {
	Tour     atsp.Tour
	Context  RunContext
	Duration time.Duration
	Reason   StopReason
}

// Cost returns the cost of the returned tour.
func (r *Result) Cost() int {
	return r.Context.BestCost
}
