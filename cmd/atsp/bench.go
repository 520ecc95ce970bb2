package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/copyleftdev/atsp/internal/bench"
	"github.com/copyleftdev/atsp/internal/errors"
	"github.com/copyleftdev/atsp/internal/logging"
	"github.com/copyleftdev/atsp/internal/optimization/search"
	"github.com/copyleftdev/atsp/internal/tsplib"
)

type benchOptions struct {
	algorithms []string
	runs       int
	startSeed  uint64
	workers    int
	outcomes   string
	summary    string
}

func newBenchCmd(root *rootOptions) *cobra.Command {
	var (
		flags searchFlags
		opts  benchOptions
	)

	cmd := &cobra.Command{
		Use:   "bench INSTANCE",
		Short: "Run several algorithms over a range of seeds and summarise the costs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config(cmd)
			if err != nil {
				return err
			}
			logger := root.logger(cmd.ErrOrStderr())
			return runBench(cmd.Context(), cmd.OutOrStdout(), logger, args[0], cfg, opts)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringSliceVar(&opts.algorithms, "algorithms", []string{
		string(search.AlgorithmGreedy),
		string(search.AlgorithmSteepest),
		string(search.AlgorithmAnnealing),
		string(search.AlgorithmTabu),
	}, "algorithms to compare")
	cmd.Flags().IntVarP(&opts.runs, "runs", "n", 10, "seeds per algorithm")
	cmd.Flags().Uint64Var(&opts.startSeed, "start-seed", 0, "first seed")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "concurrent runs (0 = GOMAXPROCS)")
	cmd.Flags().StringVar(&opts.outcomes, "csv", "", "write one row per run to this CSV file")
	cmd.Flags().StringVar(&opts.summary, "summary-csv", "", "write one row per algorithm to this CSV file")
	return cmd
}

func runBench(ctx context.Context, out io.Writer, logger *logging.Logger, path string, base search.Config, opts benchOptions) error {
	if opts.runs < 1 {
		return errors.E("cli", "bench", errors.ErrMalformed, "runs must be >= 1 (got %d)", opts.runs)
	}
	algorithms := make([]search.Algorithm, 0, len(opts.algorithms))
	for _, name := range opts.algorithms {
		alg, err := search.ParseAlgorithm(name)
		if err != nil {
			return err
		}
		algorithms = append(algorithms, alg)
	}

	inst, err := tsplib.ReadFile(path)
	if err != nil {
		return err
	}

	runner := &bench.Runner{
		Instance: inst,
		Base:     base,
		Workers:  opts.workers,
		Logger:   logging.NewZapLogger(logger),
	}
	outcomes, err := runner.Run(ctx, algorithms, bench.Seeds(opts.startSeed, opts.runs))
	if err != nil {
		return err
	}
	summaries := bench.Summarize(outcomes)

	if opts.outcomes != "" {
		if err := writeCSVFile(opts.outcomes, func(w io.Writer) error { return bench.WriteOutcomesCSV(w, outcomes) }); err != nil {
			return err
		}
	}
	if opts.summary != "" {
		if err := writeCSVFile(opts.summary, func(w io.Writer) error { return bench.WriteSummaryCSV(w, summaries) }); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "%s (n=%d), %d runs per algorithm\n\n", inst.Name, inst.Dimension(), opts.runs)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ALGORITHM\tRUNS\tFAILED\tBEST\tMEAN\tSTD\tMEDIAN\tEVALUATIONS\tTIME")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%.1f\t%.1f\t%.1f\t%s\t%s\n",
			s.Algorithm, s.Runs, s.Failed,
			humanize.Comma(int64(s.Best)), s.Mean, s.StdDev, s.Median,
			humanize.Comma(int64(s.MeanEvaluations)), humanDuration(s.MeanDuration))
	}
	return tw.Flush()
}

func writeCSVFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.E("cli", "bench", err, "create %s", path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
