package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/copyleftdev/atsp/internal/bench"
	"github.com/copyleftdev/atsp/internal/export"
	"github.com/copyleftdev/atsp/internal/logging"
	"github.com/copyleftdev/atsp/internal/optimization/moves"
	"github.com/copyleftdev/atsp/internal/optimization/search"
	"github.com/copyleftdev/atsp/internal/tsplib"
)

type solveOptions struct {
	output     string
	timeIt     bool
	verbose    bool
	showMatrix bool
}

func newSolveCmd(root *rootOptions) *cobra.Command {
	var (
		flags searchFlags
		opts  solveOptions
	)

	cmd := &cobra.Command{
		Use:   "solve INSTANCE",
		Short: "Run one search on a TSPLIB instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config(cmd)
			if err != nil {
				return err
			}
			logger := root.logger(cmd.ErrOrStderr())
			return runSolve(cmd.Context(), cmd.OutOrStdout(), logger, args[0], cfg, opts)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write a JSON or YAML report to this path")
	cmd.Flags().BoolVar(&opts.timeIt, "time", false, "re-run at least 10 times and report the mean run time")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "print the instance, configuration and run counters")
	cmd.Flags().BoolVar(&opts.showMatrix, "matrix", false, "with --verbose, also print the cost matrix")
	return cmd
}

func runSolve(ctx context.Context, out io.Writer, logger *logging.Logger, path string, cfg search.Config, opts solveOptions) error {
	inst, err := tsplib.ReadFile(path)
	if err != nil {
		return err
	}

	if opts.verbose {
		inst.Describe(out, opts.showMatrix)
		fmt.Fprintln(out, "\n========= CONFIG ==========")
		fprintConfig(out, cfg)
	}

	engine, err := search.New(cfg, inst, search.WithLogger(logging.NewZapLogger(logger)))
	if err != nil {
		return err
	}
	res, runErr := engine.Run(ctx)
	if res == nil {
		return runErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	if err := inst.Validate(res.Tour); err != nil {
		logger.Error("Solution failed validation", map[string]interface{}{"error": err.Error()})
		return err
	}

	if opts.verbose {
		fmt.Fprintln(out, "\n========= DONE ==========")
		fmt.Fprintf(out, "Stop reason: %s\n", res.Reason)
		fmt.Fprintf(out, "Iterations: %s\n", humanize.Comma(int64(res.Context.Iterations)))
		fmt.Fprintf(out, "Evaluations: %s\n", humanize.Comma(int64(res.Context.Evaluations)))
		fmt.Fprintf(out, "Steps: %s\n", humanize.Comma(int64(res.Context.Steps)))
		fmt.Fprintf(out, "Initial cost: %s\n", humanize.Comma(int64(res.Context.InitialCost)))
		if en, err := moves.NewEnumerator(inst.Dimension(), cfg.Moves); err == nil {
			fmt.Fprintf(out, "Neighbourhood size: %s\n", humanize.Comma(int64(en.Size())))
		}
		fmt.Fprintf(out, "Run time: %s\n", humanDuration(res.Duration))
		fmt.Fprintf(out, "Tour: %s\n", strings.Trim(fmt.Sprint([]int(res.Tour)), "[]"))
	}
	fmt.Fprintf(out, "Solution Cost: %s\n", humanize.Comma(int64(res.Cost())))
	if runErr != nil {
		fmt.Fprintln(out, "Search interrupted; reporting the best tour found.")
	}

	timeNS := export.NotTimed
	if opts.timeIt && runErr == nil {
		mean, reps, err := bench.MeasureRunTime(ctx, 0, func(ctx context.Context) error {
			e, err := search.New(cfg, inst)
			if err != nil {
				return err
			}
			_, err = e.Run(ctx)
			return err
		})
		if err != nil {
			return err
		}
		timeNS = float64(mean.Nanoseconds())
		fmt.Fprintf(out, "Time taken: %s per run (%d runs)\n", humanDuration(mean), reps)
	}

	if opts.output != "" {
		if err := export.NewReport(inst, cfg, res, timeNS).WriteFile(opts.output); err != nil {
			return err
		}
		logger.Info("Report written", map[string]interface{}{"path": opts.output})
	}
	return runErr
}
