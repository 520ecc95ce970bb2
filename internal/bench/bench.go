// Package bench runs repeated searches over seeds and algorithms and
// summarises the outcomes.
package bench

import (
	"context"
	"runtime"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/copyleftdev/atsp/internal/atsp"
	"github.com/copyleftdev/atsp/internal/optimization/search"
)

// Outcome is one finished run of the grid.
type Outcome struct {
	Algorithm   search.Algorithm
	Seed        uint64
	Cost        int
	InitialCost int
	Iterations  int
	Evaluations int
	Steps       int
	Duration    time.Duration
	Reason      string
	Err         error
}

// Runner executes a seeds × algorithms grid against one instance. Each run
// gets its own engine; the instance is shared read-only.
type Runner struct {
	Instance *atsp.Instance
	// Base supplies every parameter except Algorithm and Seed.
	Base search.Config
	// Workers caps concurrent runs. Zero means GOMAXPROCS.
	Workers int
	Logger  *zap.Logger
}

// Seeds returns count consecutive seeds starting at start.
func Seeds(start uint64, count int) []uint64 {
	seeds := make([]uint64, count)
	for i := range seeds {
		seeds[i] = start + uint64(i)
	}
	return seeds
}

// Run executes every (algorithm, seed) pair. Failed runs are reported in
// their Outcome; only cancellation aborts the grid. Outcomes are ordered by
// algorithm then seed regardless of completion order.
func (r *Runner) Run(ctx context.Context, algorithms []search.Algorithm, seeds []uint64) ([]Outcome, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	outcomes := make([]Outcome, len(algorithms)*len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for ai, alg := range algorithms {
		for si, seed := range seeds {
			slot := &outcomes[ai*len(seeds)+si]
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				*slot = r.runOne(gctx, alg, seed)
				logger.Debug("bench run finished",
					zap.String("algorithm", string(alg)),
					zap.Uint64("seed", seed),
					zap.Int("cost", slot.Cost),
					zap.Error(slot.Err))
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (r *Runner) runOne(ctx context.Context, alg search.Algorithm, seed uint64) Outcome {
	out := Outcome{Algorithm: alg, Seed: seed}

	cfg := r.Base
	cfg.Algorithm = alg
	cfg.Seed = seed

	engine, err := search.New(cfg, r.Instance)
	if err != nil {
		out.Err = err
		return out
	}
	res, err := engine.Run(ctx)
	if res != nil {
		out.Cost = res.Context.BestCost
		out.InitialCost = res.Context.InitialCost
		out.Iterations = res.Context.Iterations
		out.Evaluations = res.Context.Evaluations
		out.Steps = res.Context.Steps
		out.Duration = res.Duration
		out.Reason = string(res.Reason)
	}
	out.Err = err
	return out
}

// MinRepetitions is the fewest runs MeasureRunTime averages over.
const MinRepetitions = 10

// MeasureRunTime calls fn until it has run at least MinRepetitions times and
// at least minTotal has elapsed, then returns the mean duration per call.
func MeasureRunTime(ctx context.Context, minTotal time.Duration, fn func(context.Context) error) (time.Duration, int, error) {
	start := time.Now()
	reps := 0
	for reps < MinRepetitions || time.Since(start) < minTotal {
		if err := ctx.Err(); err != nil {
			return 0, reps, err
		}
		if err := fn(ctx); err != nil {
			return 0, reps, err
		}
		reps++
	}
	return time.Since(start) / time.Duration(reps), reps, nil
}

// byAlgorithm groups successful outcomes, keeping first-seen algorithm order.
func byAlgorithm(outcomes []Outcome) ([]search.Algorithm, map[search.Algorithm][]Outcome) {
	var order []search.Algorithm
	groups := make(map[search.Algorithm][]Outcome)
	for _, o := range outcomes {
		if !slices.Contains(order, o.Algorithm) {
			order = append(order, o.Algorithm)
		}
		if o.Err == nil {
			groups[o.Algorithm] = append(groups[o.Algorithm], o)
		}
	}
	return order, groups
}
