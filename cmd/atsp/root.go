package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/copyleftdev/atsp/internal/config"
	"github.com/copyleftdev/atsp/internal/logging"
	"github.com/copyleftdev/atsp/internal/optimization/moves"
	"github.com/copyleftdev/atsp/internal/optimization/search"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

func (o *rootOptions) logger(w io.Writer) *logging.Logger {
	return logging.NewWithFormat(logging.ParseLevel(o.logLevel), logging.Format(o.logFormat), w)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "atsp",
		Short: "Local search solver for asymmetric TSP instances",
		Long: `atsp reads TSPLIB FULL_MATRIX instances and improves tours with random
sampling, greedy and steepest descent, simulated annealing or tabu search.
Defaults come from the SEARCH_*, SA_* and TABU_* environment variables;
flags override them.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", string(logging.FormatText), "log format (text, json)")

	cmd.AddCommand(
		newSolveCmd(opts),
		newBenchCmd(opts),
		newValidateCmd(),
	)
	return cmd
}

// searchFlags binds the run parameters shared by solve and bench.
type searchFlags struct {
	algorithm     string
	seed          uint64
	nearest       bool
	moves         string
	timeBudget    time.Duration
	maxIterations int
	history       bool

	temperature float64
	cooling     float64
	chain       int
	tolerance   int

	tenure     int
	candidates int
	patience   int
}

func algorithmNames() string {
	names := make([]string, 0, len(search.Algorithms()))
	for _, a := range search.Algorithms() {
		names = append(names, string(a))
	}
	return strings.Join(names, ", ")
}

func (f *searchFlags) register(cmd *cobra.Command) {
	d := search.DefaultConfig()
	fl := cmd.Flags()

	fl.StringVarP(&f.algorithm, "algorithm", "a", string(d.Algorithm), "algorithm: "+algorithmNames())
	fl.Uint64VarP(&f.seed, "seed", "s", d.Seed, "random seed")
	fl.BoolVar(&f.nearest, "nn", d.NearestNeighbor, "start from a nearest-neighbour tour")
	fl.StringVarP(&f.moves, "moves", "m", d.Moves.String(), "move kinds: node-swap, edge-reversal or both")
	fl.DurationVarP(&f.timeBudget, "time-budget", "t", d.TimeBudget, "wall-clock limit per run (0 = none)")
	fl.IntVar(&f.maxIterations, "max-iterations", d.MaxIterations, "iteration cap for random and random-walk")
	fl.BoolVar(&f.history, "history", d.RecordHistory, "record the improvement history")

	fl.Float64Var(&f.temperature, "temperature", d.InitialTemperature, "annealing: initial temperature")
	fl.Float64Var(&f.cooling, "cooling-rate", d.CoolingRate, "annealing: cooling rate in (0,1)")
	fl.IntVar(&f.chain, "chain-multiplier", d.ChainLengthMultiplier, "annealing: Markov chain length as a multiple of n")
	fl.IntVar(&f.tolerance, "tolerance", d.ToleranceIterations, "annealing: chains without acceptance before stopping")

	fl.IntVar(&f.tenure, "tenure-multiplier", d.TabuTenureMultiplier, "tabu: tenure as a multiple of n")
	fl.IntVar(&f.candidates, "candidates", d.CandidateListSize, "tabu: candidate list size")
	fl.IntVar(&f.patience, "patience", d.Patience, "tabu: iterations without improvement before stopping")
}

// config starts from the environment defaults and applies every flag the
// user set explicitly.
func (f *searchFlags) config(cmd *cobra.Command) (search.Config, error) {
	env, err := config.Load()
	if err != nil {
		return search.Config{}, err
	}
	cfg, err := env.SearchConfig()
	if err != nil {
		return search.Config{}, err
	}

	fl := cmd.Flags()
	if fl.Changed("algorithm") {
		if cfg.Algorithm, err = search.ParseAlgorithm(f.algorithm); err != nil {
			return search.Config{}, err
		}
	}
	if fl.Changed("moves") {
		if cfg.Moves, err = moves.ParseKindSet(f.moves); err != nil {
			return search.Config{}, err
		}
	}
	if fl.Changed("seed") {
		cfg.Seed = f.seed
	}
	if fl.Changed("nn") {
		cfg.NearestNeighbor = f.nearest
	}
	if fl.Changed("time-budget") {
		cfg.TimeBudget = f.timeBudget
	}
	if fl.Changed("max-iterations") {
		cfg.MaxIterations = f.maxIterations
	}
	if fl.Changed("history") {
		cfg.RecordHistory = f.history
	}
	if fl.Changed("temperature") {
		cfg.InitialTemperature = f.temperature
	}
	if fl.Changed("cooling-rate") {
		cfg.CoolingRate = f.cooling
	}
	if fl.Changed("chain-multiplier") {
		cfg.ChainLengthMultiplier = f.chain
	}
	if fl.Changed("tolerance") {
		cfg.ToleranceIterations = f.tolerance
	}
	if fl.Changed("tenure-multiplier") {
		cfg.TabuTenureMultiplier = f.tenure
	}
	if fl.Changed("candidates") {
		cfg.CandidateListSize = f.candidates
	}
	if fl.Changed("patience") {
		cfg.Patience = f.patience
	}

	if err := cfg.Validate(); err != nil {
		return search.Config{}, err
	}
	return cfg, nil
}

func humanDuration(d time.Duration) string {
	return humanize.SIWithDigits(d.Seconds(), 2, "s")
}

func fprintConfig(w io.Writer, cfg search.Config) {
	fmt.Fprintf(w, "Algorithm: %s\n", cfg.Algorithm)
	fmt.Fprintf(w, "Seed: %d\n", cfg.Seed)
	fmt.Fprintf(w, "Moves: %s\n", cfg.Moves)
	fmt.Fprintf(w, "Nearest neighbour start: %t\n", cfg.NearestNeighbor)
	if cfg.TimeBudget > 0 {
		fmt.Fprintf(w, "Time budget: %s\n", cfg.TimeBudget)
	}
	switch cfg.Algorithm {
	case search.AlgorithmRandom, search.AlgorithmRandomWalk:
		fmt.Fprintf(w, "Max iterations: %s\n", humanize.Comma(int64(cfg.MaxIterations)))
	case search.AlgorithmAnnealing:
		fmt.Fprintf(w, "Initial temperature: %g\nCooling rate: %g\nChain multiplier: %d\nTolerance: %d\n",
			cfg.InitialTemperature, cfg.CoolingRate, cfg.ChainLengthMultiplier, cfg.ToleranceIterations)
	case search.AlgorithmTabu:
		fmt.Fprintf(w, "Tenure multiplier: %d\nCandidates: %d\nPatience: %d\n",
			cfg.TabuTenureMultiplier, cfg.CandidateListSize, cfg.Patience)
	}
}
