package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/atsp/internal/atsp/atsptest"
	"github.com/copyleftdev/atsp/internal/config"
	"github.com/copyleftdev/atsp/internal/errors"
	"github.com/copyleftdev/atsp/internal/logging"
	"github.com/copyleftdev/atsp/internal/metrics"
	"github.com/copyleftdev/atsp/internal/storage"
)

// testConfig creates a test configuration with default values
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Environment = "test"
	cfg.Optimization.WorkerCount = 2
	cfg.Optimization.MaxTimeBudget = time.Minute
	return cfg
}

// testLogger creates a test logger
func testLogger() *logging.Logger {
	return logging.New(logging.ErrorLevel, io.Discard)
}

type fixture struct {
	srv    *Server
	router chi.Router
	store  storage.Store
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()

	store := storage.NewMemoryStore()
	require.NoError(t, store.Init(context.Background()))

	srv := NewServer(cfg, testLogger(), store, metrics.New(nil))
	t.Cleanup(func() { _ = srv.Close() })

	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return &fixture{srv: srv, router: r, store: store}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
	return rec
}

func (f *fixture) solve(t *testing.T, req map[string]interface{}) string {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/v1/solve", req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp SolveResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, storage.StatusQueued, resp.Status)
	require.NotEmpty(t, resp.RunID)
	return resp.RunID
}

func (f *fixture) status(id string) (StatusResponse, int) {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status/"+id, nil))

	var resp StatusResponse
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	return resp, rec.Code
}

func (f *fixture) waitFor(t *testing.T, id string, want storage.Status) StatusResponse {
	t.Helper()

	var resp StatusResponse
	require.Eventually(t, func() bool {
		resp, _ = f.status(id)
		return resp.Status == want
	}, 10*time.Second, 5*time.Millisecond, "run %s never reached %s", id, want)
	return resp
}

func longRun() map[string]interface{} {
	return map[string]interface{}{
		"name":        "slow",
		"matrix":      atsptest.RandomMatrix(30, 1, 100, false, 1),
		"config":      map[string]interface{}{"algorithm": "random", "max_iterations": 0},
		"time_budget": "30s",
	}
}

func TestRegisterRoutes(t *testing.T) {
	f := newFixture(t, testConfig(t))

	tests := []struct {
		method      string
		path        string
		shouldExist bool
	}{
		{"POST", "/api/v1/solve", true},
		{"GET", "/api/v1/status/123", true},
		{"GET", "/api/v1/runs", true},
		{"DELETE", "/api/v1/runs/123", true},
		{"POST", "/rpc", true},
		{"GET", "/healthz", false},
		{"GET", "/nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			ctx := chi.NewRouteContext()
			found := f.router.Match(ctx, tt.method, tt.path)
			assert.Equal(t, tt.shouldExist, found)
		})
	}
}

func TestSolveLifecycle(t *testing.T) {
	f := newFixture(t, testConfig(t))
	matrix := atsptest.RandomMatrix(12, 1, 50, false, 4)

	id := f.solve(t, map[string]interface{}{
		"name":   "rand12",
		"matrix": matrix,
		"config": map[string]interface{}{"algorithm": "steepest", "seed": 3, "moves": "edge-reversal"},
	})

	resp := f.waitFor(t, id, storage.StatusCompleted)
	assert.Equal(t, "rand12", resp.Instance)
	assert.Equal(t, 12, resp.Dimension)
	assert.Equal(t, "steepest-search", resp.Algorithm)
	assert.Equal(t, "explorer", resp.Reason)
	assert.NotNil(t, resp.FinishedAt)
	assert.Nil(t, resp.Progress)

	inst := atsptest.MustInstance(t, matrix)
	require.NoError(t, inst.Validate(resp.Tour))
	assert.Equal(t, inst.Cost(resp.Tour), resp.BestCost)

	rec, ok, err := f.store.GetRun(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, storage.StatusCompleted, rec.Status)
	assert.Equal(t, resp.BestCost, rec.BestCost)
}

func TestSolveRejectsBadRequests(t *testing.T) {
	f := newFixture(t, testConfig(t))
	ring := atsptest.RandomMatrix(5, 1, 9, false, 2)

	tests := []struct {
		name string
		body interface{}
		code int
	}{
		{"malformed body", "{", http.StatusBadRequest},
		{"too small", map[string]interface{}{"matrix": [][]int{{0, 1}, {1, 0}}}, http.StatusBadRequest},
		{"ragged", map[string]interface{}{"matrix": [][]int{{0, 1, 2}, {1, 0}, {1, 2, 0}}}, http.StatusBadRequest},
		{"unknown algorithm", map[string]interface{}{"matrix": ring, "config": map[string]interface{}{"algorithm": "genetic"}}, http.StatusBadRequest},
		{"empty moves", map[string]interface{}{"matrix": ring, "config": map[string]interface{}{"moves": ""}}, http.StatusBadRequest},
		{"bad budget", map[string]interface{}{"matrix": ring, "time_budget": "soon"}, http.StatusBadRequest},
		{"budget above limit", map[string]interface{}{"matrix": ring, "time_budget": "2h"}, http.StatusBadRequest},
		{"zero tenure", map[string]interface{}{"matrix": ring, "config": map[string]interface{}{"algorithm": "tabu-search", "tabu_tenure_multiplier": 0}}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/solve", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestStatusNotFound(t *testing.T) {
	f := newFixture(t, testConfig(t))

	_, code := f.status("missing")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStatusFallsBackToStore(t *testing.T) {
	f := newFixture(t, testConfig(t))
	require.NoError(t, f.store.SaveRun(context.Background(), storage.RunRecord{
		ID:         "old-run",
		Instance:   "br17",
		Status:     storage.StatusCompleted,
		BestCost:   39,
		Tour:       []int{0, 1, 2},
		CreatedAt:  time.Now().Add(-time.Hour),
		FinishedAt: time.Now().Add(-time.Hour),
	}))

	resp, code := f.status("old-run")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, storage.StatusCompleted, resp.Status)
	assert.Equal(t, 39, resp.BestCost)
}

func TestCancelRun(t *testing.T) {
	f := newFixture(t, testConfig(t))
	id := f.solve(t, longRun())

	running := f.waitFor(t, id, storage.StatusRunning)
	require.NotNil(t, running.Progress)

	rec := f.do(t, http.MethodDelete, "/api/v1/runs/"+id, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	resp := f.waitFor(t, id, storage.StatusCancelled)
	assert.Equal(t, "cancelled", resp.Reason)
	assert.Len(t, resp.Tour, 30)

	rec = f.do(t, http.MethodDelete, "/api/v1/runs/"+id, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/runs/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func quickRun() map[string]interface{} {
	return map[string]interface{}{
		"name":   "quick",
		"matrix": atsptest.RandomMatrix(8, 1, 50, false, 9),
		"config": map[string]interface{}{"algorithm": "steepest-search", "seed": 2},
	}
}

func TestFinishedRunLeavesRegistry(t *testing.T) {
	f := newFixture(t, testConfig(t))
	id := f.solve(t, quickRun())

	resp := f.waitFor(t, id, storage.StatusCompleted)
	assert.Len(t, resp.Tour, 8)

	f.srv.runsMu.RLock()
	_, held := f.srv.runs[id]
	f.srv.runsMu.RUnlock()
	assert.False(t, held, "persisted run should be served from the store")

	again, code := f.status(id)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, resp.BestCost, again.BestCost)

	err := f.srv.cancelRun(context.Background(), id)
	assert.ErrorIs(t, err, errors.ErrConflict)
}

func TestFinishedRunWithoutStoreDropsEngine(t *testing.T) {
	srv := NewServer(testConfig(t), testLogger(), nil, nil)
	t.Cleanup(func() { _ = srv.Close() })
	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	f := &fixture{srv: srv, router: r}

	id := f.solve(t, quickRun())
	resp := f.waitFor(t, id, storage.StatusCompleted)
	assert.Len(t, resp.Tour, 8)
	assert.Nil(t, resp.Progress)

	srv.runsMu.RLock()
	state, held := srv.runs[id]
	var engine interface{}
	if held {
		engine = state.engine
	}
	srv.runsMu.RUnlock()
	require.True(t, held)
	assert.Nil(t, engine)

	err := srv.cancelRun(context.Background(), id)
	assert.ErrorIs(t, err, errors.ErrConflict)
}

func TestWorkerLimitQueuesRuns(t *testing.T) {
	cfg := testConfig(t)
	cfg.Optimization.WorkerCount = 1
	f := newFixture(t, cfg)

	first := f.solve(t, longRun())
	f.waitFor(t, first, storage.StatusRunning)

	second := f.solve(t, longRun())
	resp, _ := f.status(second)
	assert.Equal(t, storage.StatusQueued, resp.Status)

	// A queued run can be cancelled before it ever starts.
	require.NoError(t, f.srv.cancelRun(context.Background(), second))
	f.waitFor(t, second, storage.StatusCancelled)

	require.NoError(t, f.srv.cancelRun(context.Background(), first))
	f.waitFor(t, first, storage.StatusCancelled)
}

func TestListRuns(t *testing.T) {
	f := newFixture(t, testConfig(t))
	matrix := atsptest.RandomMatrix(6, 1, 9, false, 8)

	for range 3 {
		id := f.solve(t, map[string]interface{}{"matrix": matrix})
		f.waitFor(t, id, storage.StatusCompleted)
	}

	rec := f.do(t, http.MethodGet, "/api/v1/runs?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	assert.Len(t, runs, 2)

	rec = f.do(t, http.MethodGet, "/api/v1/runs?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClose(t *testing.T) {
	f := newFixture(t, testConfig(t))
	id := f.solve(t, longRun())
	f.waitFor(t, id, storage.StatusRunning)

	done := make(chan error, 1)
	go func() { done <- f.srv.Close() }()

	select {
	case err := <-done:
		assert.NoError(t, err, "Close should not return an error")
	case <-time.After(10 * time.Second):
		t.Fatal("Close did not return")
	}

	resp, _ := f.status(id)
	assert.Equal(t, storage.StatusCancelled, resp.Status)
}

func rpcCall(t *testing.T, f *fixture, body string) map[string]interface{} {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/rpc", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func rpcErrorCode(resp map[string]interface{}) float64 {
	errObj, ok := resp["error"].(map[string]interface{})
	if !ok {
		return 0
	}
	code, _ := errObj["code"].(float64)
	return code
}

func TestJSONRPC(t *testing.T) {
	f := newFixture(t, testConfig(t))

	start := rpcCall(t, f, `{"jsonrpc":"2.0","id":1,"method":"search.start","params":[{"name":"rpc","matrix":[[0,1,9,9],[9,0,1,9],[9,9,0,1],[1,9,9,0]],"config":{"algorithm":"nn"}}]}`)
	require.Nil(t, start["error"])
	result := start["result"].(map[string]interface{})
	id := result["run_id"].(string)
	assert.Equal(t, "queued", result["status"])

	f.waitFor(t, id, storage.StatusCompleted)

	status := rpcCall(t, f, `{"jsonrpc":"2.0","id":"abc","method":"search.status","params":{"run_id":"`+id+`"}}`)
	require.Nil(t, status["error"])
	assert.Equal(t, "abc", status["id"])
	body := status["result"].(map[string]interface{})
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, "nn-heuristic", body["algorithm"])
	assert.Equal(t, 4.0, body["best_cost"])

	tests := []struct {
		name string
		body string
		code float64
	}{
		{"parse error", `{`, rpcParseError},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"search.status"}`, rpcInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"search.explode"}`, rpcMethodNotFound},
		{"missing params", `{"jsonrpc":"2.0","id":1,"method":"search.status"}`, rpcInvalidParams},
		{"missing run id", `{"jsonrpc":"2.0","id":1,"method":"search.cancel","params":[{}]}`, rpcInvalidParams},
		{"unknown run", `{"jsonrpc":"2.0","id":1,"method":"search.cancel","params":{"run_id":"nope"}}`, rpcInvalidParams},
		{"finished run", `{"jsonrpc":"2.0","id":1,"method":"search.cancel","params":{"run_id":"` + id + `"}}`, rpcInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, rpcErrorCode(rpcCall(t, f, tt.body)))
		})
	}
}

func TestRespondWithError(t *testing.T) {
	srv := NewServer(testConfig(t), testLogger(), nil, nil)

	tests := []struct {
		name       string
		code       int
		message    string
		id         interface{}
		expectedID interface{}
	}{
		{
			name:       "valid error response",
			code:       rpcInvalidParams,
			message:    "invalid input",
			id:         "123",
			expectedID: "123",
		},
		{
			name:       "nil id",
			code:       rpcServerError,
			message:    "server error",
			id:         nil,
			expectedID: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			srv.respondWithError(rr, tt.code, tt.message, tt.id)

			// JSON-RPC errors travel in a 200 body.
			assert.Equal(t, http.StatusOK, rr.Code)

			var response map[string]interface{}
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))

			errObj, ok := response["error"].(map[string]interface{})
			require.True(t, ok, "response should contain error object")
			assert.Equal(t, float64(tt.code), errObj["code"])
			assert.Equal(t, tt.message, errObj["message"])
			assert.Equal(t, tt.expectedID, response["id"])
		})
	}
}
