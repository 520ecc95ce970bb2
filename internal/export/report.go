// Package export writes finished runs as JSON or YAML reports for offline
// analysis.
package export

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/atsp/internal/atsp"
	"github.com/copyleftdev/atsp/internal/errors"
	"github.com/copyleftdev/atsp/internal/optimization"
	"github.com/copyleftdev/atsp/internal/optimization/search"
)

const component = "export"

// NotTimed marks a report whose run time was not measured.
const NotTimed = -1.0

// Format selects the report encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Report is the flat record of one run. Meta parameters hold the
// algorithm-specific tuning knobs; unused slots are zero.
type Report struct {
	Order              []int   `json:"order" yaml:"order,flow"`
	Cost               int     `json:"cost" yaml:"cost"`
	InitialCost        int     `json:"initial_cost" yaml:"initial_cost"`
	TimeNS             float64 `json:"time" yaml:"time"`
	Iterations         int     `json:"iterations" yaml:"iterations"`
	Steps              int     `json:"steps" yaml:"steps"`
	Evaluations        int     `json:"evaluations" yaml:"evaluations"`
	Method             string  `json:"method" yaml:"method"`
	Instance           string  `json:"instance" yaml:"instance"`
	Neighbourhood      string  `json:"neighborhood" yaml:"neighborhood"`
	Seed               uint64  `json:"seed" yaml:"seed"`
	StopReason         string  `json:"stop_reason" yaml:"stop_reason"`
	EvaluationsHistory []int   `json:"evaluations_history" yaml:"evaluations_history,flow"`
	CostHistory        []int   `json:"cost_history" yaml:"cost_history,flow"`
	MetaParam1         float64 `json:"meta-param-1" yaml:"meta-param-1"`
	MetaParam2         float64 `json:"meta-param-2" yaml:"meta-param-2"`
	MetaParam3         float64 `json:"meta-param-3" yaml:"meta-param-3"`
}

// NewReport flattens a result. timeNS is the mean wall time per run in
// nanoseconds, or NotTimed.
func NewReport(inst *atsp.Instance, cfg search.Config, res *optimization.Result, timeNS float64) Report {
	r := Report{
		Order:              append([]int(nil), res.Tour...),
		Cost:               res.Context.BestCost,
		InitialCost:        res.Context.InitialCost,
		TimeNS:             timeNS,
		Iterations:         res.Context.Iterations,
		Steps:              res.Context.Steps,
		Evaluations:        res.Context.Evaluations,
		Method:             string(cfg.Algorithm),
		Instance:           inst.Name,
		Neighbourhood:      cfg.Moves.String(),
		Seed:               cfg.Seed,
		StopReason:         string(res.Reason),
		EvaluationsHistory: make([]int, 0, len(res.Context.History)),
		CostHistory:        make([]int, 0, len(res.Context.History)),
	}
	for _, s := range res.Context.History {
		r.EvaluationsHistory = append(r.EvaluationsHistory, s.Evaluations)
		r.CostHistory = append(r.CostHistory, s.BestCost)
	}
	r.MetaParam1, r.MetaParam2, r.MetaParam3 = metaParams(cfg)
	return r
}

func metaParams(cfg search.Config) (float64, float64, float64) {
	switch cfg.Algorithm {
	case search.AlgorithmAnnealing:
		return cfg.InitialTemperature, cfg.CoolingRate, float64(cfg.ChainLengthMultiplier)
	case search.AlgorithmTabu:
		return float64(cfg.TabuTenureMultiplier), float64(cfg.CandidateListSize), float64(cfg.Patience)
	case search.AlgorithmRandom, search.AlgorithmRandomWalk:
		return float64(cfg.MaxIterations), 0, 0
	default:
		return 0, 0, 0
	}
}

// Encode writes r to w in the given format.
func (r Report) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "\t")
		if err := enc.Encode(r); err != nil {
			return errors.E(component, "encode", err, "write json report")
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return errors.E(component, "encode", err, "write yaml report")
		}
		return enc.Close()
	default:
		return errors.E(component, "encode", errors.ErrUnsupported, "unknown report format %q", format)
	}
}

// WriteFile writes r to path, choosing the format from its extension.
func (r Report) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.E(component, "write", err, "create %s", path)
	}
	if err := r.Encode(f, FormatFromPath(path)); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.E(component, "write", err, "close %s", path)
	}
	return nil
}

// ReadFile loads a report written by WriteFile.
func ReadFile(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, errors.E(component, "read", err, "read %s", path)
	}

	var r Report
	switch FormatFromPath(path) {
	case FormatYAML:
		err = yaml.Unmarshal(data, &r)
	default:
		err = json.Unmarshal(data, &r)
	}
	if err != nil {
		return Report{}, errors.E(component, "read", errors.ErrMalformed, "decode %s: %v", path, err)
	}
	return r, nil
}
