package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(WarnLevel, &buf)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown", map[string]interface{}{"n": 1})
	l.Error("shown too")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Equal(t, "shown", entries[0]["message"])
	assert.EqualValues(t, 1, entries[0]["n"])
	assert.Contains(t, entries[0]["caller"], "logging/logging_test.go")
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(InfoLevel, &buf)
	child := parent.WithField("run_id", "abc")

	parent.Info("parent")
	child.Info("child")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0], "run_id")
	assert.Equal(t, "abc", entries[1]["run_id"])
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithFormat(InfoLevel, FormatText, &buf)

	l.WithField("algorithm", "tabu-search").Info("search finished", map[string]interface{}{
		"best_cost": 1234,
		"note":      "two words",
	})

	line := buf.String()
	assert.Contains(t, line, "INFO  search finished")
	assert.Contains(t, line, "algorithm=tabu-search")
	assert.Contains(t, line, "best_cost=1234")
	assert.Contains(t, line, `note="two words"`)
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, ErrorLevel, ParseLevel(" Error "))
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solver.log")

	l, err := NewLogger(&Config{Level: "warn", Format: "JSON", Output: path})
	require.NoError(t, err)
	l.Info("dropped")
	l.Warn("run queued slowly", map[string]interface{}{"run_id": "r1"})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	entries := decodeLines(t, bytes.NewBuffer(data))
	require.Len(t, entries, 1)
	assert.Equal(t, "run queued slowly", entries[0]["message"])

	_, err = NewLogger(&Config{Format: "xml"})
	assert.Error(t, err)

	_, err = NewLogger(&Config{Output: filepath.Join(t.TempDir(), "missing", "solver.log")})
	assert.Error(t, err)

	l, err = NewLogger(nil)
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestZapBridge(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZapLogger(New(DebugLevel, &buf)).With(zap.String("run", "greedy-search"))

	zl.Info("search finished",
		zap.Int("best_cost", 42),
		zap.Float64("temperature", 0.5),
		zap.Duration("elapsed", 2*time.Second),
		zap.Bool("ok", true),
	)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "INFO", e["level"])
	assert.Equal(t, "greedy-search", e["run"])
	assert.EqualValues(t, 42, e["best_cost"])
	assert.InDelta(t, 0.5, e["temperature"], 1e-12)
	assert.Equal(t, true, e["ok"])
	assert.EqualValues(t, float64(2*time.Second), e["elapsed"])
}

func TestZapBridgeRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZapLogger(New(InfoLevel, &buf))

	zl.Debug("improved")
	assert.Zero(t, buf.Len())
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(InfoLevel, &buf)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(Middleware(logger))
	r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside")
		http.NotFound(w, r)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "inside", entries[0]["message"])
	assert.NotEmpty(t, entries[0]["request_id"])
	assert.Equal(t, "Request completed", entries[1]["message"])
	assert.EqualValues(t, 404, entries[1]["status"])
	assert.Equal(t, "Not Found", entries[1]["error"])
}
