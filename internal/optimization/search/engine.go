// Package search drives a single local-search run: it asks the initializer for
// a starting tour, steps the explorer until something tells it to stop, tracks
// the best tour seen and verifies its cost before handing it back.
package search

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/atsp/internal/atsp"
	"github.com/copyleftdev/atsp/internal/optimization"
)

// State is the lifecycle phase of an engine.
type State int32

const (
	StateIdle State = iota
	StateInitializing
	StateIterating
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateIterating:
		return "iterating"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Options tunes an engine beyond its strategy.
type Options struct {
	Logger        *zap.Logger
	TimeBudget    time.Duration
	RecordHistory bool
	Label         string
	// Clock is swapped out by tests.
	Clock func() time.Time
}

// Option is a functional option for NewEngine.
type Option func(*Options)

// WithLogger routes run logs to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithTimeBudget bounds the wall-clock time of the iteration loop. Zero means
// unbounded.
func WithTimeBudget(d time.Duration) Option {
	return func(o *Options) {
		o.TimeBudget = d
	}
}

// WithHistory records a sample on every improvement of the best cost.
func WithHistory(enabled bool) Option {
	return func(o *Options) {
		o.RecordHistory = enabled
	}
}

// WithLabel names the run in logs.
func WithLabel(label string) Option {
	return func(o *Options) {
		o.Label = label
	}
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		if clock != nil {
			o.Clock = clock
		}
	}
}

// Progress is the view of a running engine that other goroutines may read.
type Progress struct {
	State       State
	Iterations  int
	Evaluations int
	Steps       int
	InitialCost int
	CurrentCost int
	BestCost    int
}

// Engine runs one search. It is not reusable: Run may be called once.
type Engine struct {
	inst        *atsp.Instance
	initializer optimization.Initializer
	explorer    optimization.Explorer
	opts        Options

	mu       sync.RWMutex
	progress Progress
	best     atsp.Tour
}

// NewEngine wires an initializer and an explorer to an instance.
func NewEngine(inst *atsp.Instance, initializer optimization.Initializer, explorer optimization.Explorer, opts ...Option) *Engine {
	o := Options{
		Logger: zap.NewNop(),
		Clock:  time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		inst:        inst,
		initializer: initializer,
		explorer:    explorer,
		opts:        o,
	}
}

// Run executes the search to completion. Cancellation and the time budget are
// honoured between iterations; a cancelled run still returns its best tour
// along with the context error.
func (e *Engine) Run(ctx context.Context) (*optimization.Result, error) {
	log := e.opts.Logger.With(
		zap.String("run", e.opts.Label),
		zap.String("instance", e.inst.Name),
		zap.Int("dimension", e.inst.Dimension()),
	)
	start := e.opts.Clock()

	e.setState(StateInitializing)
	tour := e.initializer.Initialize(e.inst)
	if err := e.inst.Validate(tour); err != nil {
		return nil, optimization.WrapErrorf(err, "initializer produced an invalid tour").
			WithComponent("search").WithOperation("initialize")
	}
	rc := optimization.NewRunContext(e.inst.Cost(tour))
	best := tour.Clone()
	if e.opts.RecordHistory {
		rc.History = append(rc.History, optimization.Sample{Evaluations: 0, BestCost: rc.BestCost})
	}
	e.publish(rc, best)
	e.setState(StateIterating)

	log.Info("search started",
		zap.Int("initial_cost", rc.InitialCost),
		zap.Duration("time_budget", e.opts.TimeBudget),
	)

	var (
		reason = optimization.StopExplorer
		runErr error
	)
	for !e.explorer.ShouldStop(rc) {
		if err := ctx.Err(); err != nil {
			reason, runErr = optimization.StopCancelled, err
			break
		}
		if e.opts.TimeBudget > 0 && e.opts.Clock().Sub(start) >= e.opts.TimeBudget {
			reason = optimization.StopTimeBudget
			break
		}

		e.explorer.Step(e.inst, tour, rc)
		rc.Iterations++

		if rc.CurrentCost < rc.BestCost {
			rc.BestCost = rc.CurrentCost
			rc.IterationsWithoutImprovement = 0
			rc.Steps++
			copy(best, tour)
			if e.opts.RecordHistory {
				rc.History = append(rc.History, optimization.Sample{
					Evaluations: rc.Evaluations,
					BestCost:    rc.BestCost,
				})
			}
			log.Debug("improved",
				zap.Int("best_cost", rc.BestCost),
				zap.Int("iteration", rc.Iterations),
				zap.Int("evaluations", rc.Evaluations),
			)
			e.publish(rc, best)
		} else {
			e.publishCounters(rc)
		}
		rc.IterationsWithoutImprovement++
	}

	e.setState(StateTerminated)
	elapsed := e.opts.Clock().Sub(start)

	if actual := e.inst.Cost(best); actual != rc.BestCost {
		log.Error("tracked cost diverged",
			zap.Int("tracked", rc.BestCost),
			zap.Int("actual", actual),
		)
		return nil, optimization.WrapErrorf(optimization.ErrCostDivergence,
			"tracked best cost %d, tour costs %d", rc.BestCost, actual).
			WithComponent("search").WithOperation("verify")
	}

	log.Info("search finished",
		zap.String("reason", string(reason)),
		zap.Int("best_cost", rc.BestCost),
		zap.Int("iterations", rc.Iterations),
		zap.Int("evaluations", rc.Evaluations),
		zap.Int("steps", rc.Steps),
		zap.Duration("elapsed", elapsed),
	)

	return &optimization.Result{
		Tour:     best,
		Context:  rc.Snapshot(),
		Duration: elapsed,
		Reason:   reason,
	}, runErr
}

// Progress returns the latest published counters.
func (e *Engine) Progress() Progress {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.progress
}

// BestTour returns a copy of the best tour published so far, or nil before
// initialization.
func (e *Engine) BestTour() atsp.Tour {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.best == nil {
		return nil
	}
	return e.best.Clone()
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.progress.State = s
	e.mu.Unlock()
}

func (e *Engine) publish(rc *optimization.RunContext, best atsp.Tour) {
	e.mu.Lock()
	e.fillCounters(rc)
	if e.best == nil {
		e.best = make(atsp.Tour, len(best))
	}
	copy(e.best, best)
	e.mu.Unlock()
}

func (e *Engine) publishCounters(rc *optimization.RunContext) {
	e.mu.Lock()
	e.fillCounters(rc)
	e.mu.Unlock()
}

func (e *Engine) fillCounters(rc *optimization.RunContext) {
	e.progress.Iterations = rc.Iterations
	e.progress.Evaluations = rc.Evaluations
	e.progress.Steps = rc.Steps
	e.progress.InitialCost = rc.InitialCost
	e.progress.CurrentCost = rc.CurrentCost
	e.progress.BestCost = rc.BestCost
}
