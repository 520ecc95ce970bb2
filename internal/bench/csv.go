package bench

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/copyleftdev/atsp/internal/errors"
)

var outcomeHeader = []string{
	"algorithm", "seed", "cost", "initial_cost", "iterations", "evaluations",
	"steps", "duration_ns", "reason", "error",
}

var summaryHeader = []string{
	"algorithm", "runs", "failed", "best", "worst", "mean", "std", "median",
	"mean_evaluations", "mean_duration_ns", "mean_improvement",
}

// WriteOutcomesCSV writes one row per run.
func WriteOutcomesCSV(w io.Writer, outcomes []Outcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(outcomeHeader); err != nil {
		return errors.E("bench", "write_csv", err, "write header")
	}
	for _, o := range outcomes {
		errText := ""
		if o.Err != nil {
			errText = o.Err.Error()
		}
		row := []string{
			string(o.Algorithm),
			strconv.FormatUint(o.Seed, 10),
			strconv.Itoa(o.Cost),
			strconv.Itoa(o.InitialCost),
			strconv.Itoa(o.Iterations),
			strconv.Itoa(o.Evaluations),
			strconv.Itoa(o.Steps),
			strconv.FormatInt(o.Duration.Nanoseconds(), 10),
			o.Reason,
			errText,
		}
		if err := cw.Write(row); err != nil {
			return errors.E("bench", "write_csv", err, "write row")
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes one row per algorithm.
func WriteSummaryCSV(w io.Writer, summaries []Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return errors.E("bench", "write_csv", err, "write header")
	}
	for _, s := range summaries {
		row := []string{
			string(s.Algorithm),
			strconv.Itoa(s.Runs),
			strconv.Itoa(s.Failed),
			strconv.Itoa(s.Best),
			strconv.Itoa(s.Worst),
			formatFloat(s.Mean),
			formatFloat(s.StdDev),
			formatFloat(s.Median),
			formatFloat(s.MeanEvaluations),
			strconv.FormatInt(s.MeanDuration.Nanoseconds(), 10),
			formatFloat(s.MeanImprovement),
		}
		if err := cw.Write(row); err != nil {
			return errors.E("bench", "write_csv", err, "write row")
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
