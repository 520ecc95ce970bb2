package export

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/atsp/internal/atsp/atsptest"
	"github.com/copyleftdev/atsp/internal/errors"
	"github.com/copyleftdev/atsp/internal/optimization"
	"github.com/copyleftdev/atsp/internal/optimization/moves"
	"github.com/copyleftdev/atsp/internal/optimization/search"
)

func runReport(t *testing.T, alg search.Algorithm) Report {
	t.Helper()

	inst := atsptest.RandomInstance(t, 15, false, 3)
	inst.Name = "rand15"

	cfg := search.DefaultConfig()
	cfg.Algorithm = alg
	cfg.Seed = 11
	cfg.RecordHistory = true

	engine, err := search.New(cfg, inst)
	require.NoError(t, err)
	res, err := engine.Run(context.Background())
	require.NoError(t, err)

	return NewReport(inst, cfg, res, 1500)
}

func TestNewReport(t *testing.T) {
	r := runReport(t, search.AlgorithmSteepest)

	assert.Len(t, r.Order, 15)
	assert.Equal(t, "steepest-search", r.Method)
	assert.Equal(t, "rand15", r.Instance)
	assert.Equal(t, "node-swap,edge-reversal", r.Neighbourhood)
	assert.Equal(t, string(optimization.StopExplorer), r.StopReason)
	assert.Equal(t, uint64(11), r.Seed)
	assert.Equal(t, 1500.0, r.TimeNS)
	assert.LessOrEqual(t, r.Cost, r.InitialCost)

	require.NotEmpty(t, r.CostHistory)
	assert.Len(t, r.EvaluationsHistory, len(r.CostHistory))
	assert.Equal(t, r.InitialCost, r.CostHistory[0])
	assert.Equal(t, r.Cost, r.CostHistory[len(r.CostHistory)-1])
	assert.Zero(t, r.MetaParam1)
}

func TestMetaParams(t *testing.T) {
	cfg := search.DefaultConfig()

	cfg.Algorithm = search.AlgorithmAnnealing
	a, b, c := metaParams(cfg)
	assert.Equal(t, []float64{1000, 0.95, 1}, []float64{a, b, c})

	cfg.Algorithm = search.AlgorithmTabu
	a, b, c = metaParams(cfg)
	assert.Equal(t, []float64{1, 20, 100}, []float64{a, b, c})

	cfg.Algorithm = search.AlgorithmGreedy
	a, b, c = metaParams(cfg)
	assert.Equal(t, []float64{0, 0, 0}, []float64{a, b, c})
}

func TestEncodeJSONKeys(t *testing.T) {
	r := runReport(t, search.AlgorithmTabu)

	var buf bytes.Buffer
	require.NoError(t, r.Encode(&buf, FormatJSON))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	for _, key := range []string{
		"order", "cost", "initial_cost", "time", "iterations", "steps", "evaluations",
		"method", "instance", "neighborhood", "evaluations_history", "cost_history",
		"meta-param-1", "meta-param-2", "meta-param-3",
	} {
		assert.Contains(t, raw, key)
	}
	assert.Equal(t, 20.0, raw["meta-param-2"])
}

func TestEncodeUnknownFormat(t *testing.T) {
	err := Report{}.Encode(&bytes.Buffer{}, Format("xml"))
	assert.True(t, errors.Is(err, errors.ErrUnsupported))
}

func TestWriteAndReadFile(t *testing.T) {
	r := runReport(t, search.AlgorithmAnnealing)
	dir := t.TempDir()

	for _, name := range []string{"report.json", "report.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, r.WriteFile(path))

			got, err := ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, r, got)
		})
	}
}

func TestReadFileErrors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err = ReadFile(path)
	assert.True(t, errors.Is(err, errors.ErrMalformed))
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("out.YML"))
	assert.Equal(t, FormatYAML, FormatFromPath("out.yaml"))
	assert.Equal(t, FormatJSON, FormatFromPath("out.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("out"))
}

func TestNeighbourhoodFollowsMoves(t *testing.T) {
	inst := atsptest.MustInstance(t, atsptest.ScenarioMatrix)
	cfg := search.DefaultConfig()
	cfg.Algorithm = search.AlgorithmNNHeuristic
	cfg.Moves = moves.NodeSwaps

	engine, err := search.New(cfg, inst)
	require.NoError(t, err)
	res, err := engine.Run(context.Background())
	require.NoError(t, err)

	r := NewReport(inst, cfg, res, NotTimed)
	assert.Equal(t, "node-swap", r.Neighbourhood)
	assert.Equal(t, NotTimed, r.TimeNS)
	assert.Empty(t, r.CostHistory)
}
