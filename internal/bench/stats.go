package bench

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/atsp/internal/optimization/search"
)

// Summary aggregates the runs of one algorithm.
type Summary struct {
	Algorithm search.Algorithm
	Runs      int
	Failed    int
	Best      int
	Worst     int
	Mean      float64
	StdDev    float64
	// Median is the lower median for an even number of runs.
	Median          float64
	MeanEvaluations float64
	MeanDuration    time.Duration
	// MeanImprovement is the mean of (initial-cost)/initial.
	MeanImprovement float64
}

// Summarize computes per-algorithm statistics over successful runs.
func Summarize(outcomes []Outcome) []Summary {
	order, groups := byAlgorithm(outcomes)

	failed := make(map[search.Algorithm]int)
	for _, o := range outcomes {
		if o.Err != nil {
			failed[o.Algorithm]++
		}
	}

	summaries := make([]Summary, 0, len(order))
	for _, alg := range order {
		runs := groups[alg]
		s := Summary{Algorithm: alg, Runs: len(runs), Failed: failed[alg]}
		if len(runs) == 0 {
			summaries = append(summaries, s)
			continue
		}

		costs := make([]float64, len(runs))
		evals := make([]float64, len(runs))
		improvements := make([]float64, len(runs))
		var total time.Duration
		for i, o := range runs {
			costs[i] = float64(o.Cost)
			evals[i] = float64(o.Evaluations)
			if o.InitialCost > 0 {
				improvements[i] = float64(o.InitialCost-o.Cost) / float64(o.InitialCost)
			}
			total += o.Duration
		}

		s.Best = int(floats.Min(costs))
		s.Worst = int(floats.Max(costs))
		s.Mean, s.StdDev = stat.MeanStdDev(costs, nil)
		if len(costs) == 1 {
			s.StdDev = 0
		}
		sorted := append([]float64(nil), costs...)
		sort.Float64s(sorted)
		s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
		s.MeanEvaluations = stat.Mean(evals, nil)
		s.MeanImprovement = stat.Mean(improvements, nil)
		s.MeanDuration = total / time.Duration(len(runs))

		summaries = append(summaries, s)
	}
	return summaries
}
