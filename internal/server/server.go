package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/copyleftdev/atsp/internal/atsp"
	"github.com/copyleftdev/atsp/internal/config"
	"github.com/copyleftdev/atsp/internal/errors"
	"github.com/copyleftdev/atsp/internal/logging"
	"github.com/copyleftdev/atsp/internal/metrics"
	"github.com/copyleftdev/atsp/internal/optimization"
	"github.com/copyleftdev/atsp/internal/optimization/search"
	"github.com/copyleftdev/atsp/internal/storage"
)

const component = "server"

// Logger defines the logging interface used by the server
// This allows us to be flexible with our logging implementation
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// RunState tracks one submitted search. Fields other than engine and cancel
// are guarded by Server.runsMu.
type RunState struct {
	ID        string
	Status    storage.Status
	Instance  string
	Dimension int
	Config    search.Config
	CreatedAt time.Time
	EndTime   *time.Time

	result *optimization.Result
	err    error

	engine *search.Engine
	cancel context.CancelFunc
}

// Server implements the HTTP and JSON-RPC surface of the solver. Each
// submitted run executes in its own goroutine with its own engine; at most
// Optimization.WorkerCount run at once and the rest wait in the queued state.
type Server struct {
	cfg     *config.Config
	logger  Logger
	engines *zap.Logger
	store   storage.Store
	metrics *metrics.Metrics

	runs   map[string]*RunState
	runsMu sync.RWMutex

	slots chan struct{}
	wg    sync.WaitGroup
	newID func() string
}

// NewServer wires the service. store must already be initialised.
func NewServer(cfg *config.Config, logger Logger, store storage.Store, m *metrics.Metrics) *Server {
	workers := cfg.Optimization.WorkerCount
	if workers < 1 {
		workers = 1
	}

	engines := zap.NewNop()
	if l, ok := logger.(*logging.Logger); ok {
		engines = logging.NewZapLogger(l)
	}
	if m == nil {
		m = metrics.New(nil)
	}

	return &Server{
		cfg:     cfg,
		logger:  logger,
		engines: engines,
		store:   store,
		metrics: m,
		runs:    make(map[string]*RunState),
		slots:   make(chan struct{}, workers),
		newID:   uuid.NewString,
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/solve", s.handleSolve)
		r.Get("/status/{id}", s.handleStatus)
		r.Get("/runs", s.handleList)
		r.Delete("/runs/{id}", s.handleCancel)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// SolveRequest is the body of POST /api/v1/solve and the search.start params.
// Config fields override the server defaults; TimeBudget accepts Go duration
// syntax ("2s", "150ms").
type SolveRequest struct {
	Name       string          `json:"name"`
	Matrix     [][]int         `json:"matrix"`
	Config     json.RawMessage `json:"config,omitempty"`
	TimeBudget string          `json:"time_budget,omitempty"`
}

// SolveResponse acknowledges a queued run.
type SolveResponse struct {
	RunID  string         `json:"run_id"`
	Status storage.Status `json:"status"`
}

// ProgressView is the live counter snapshot of a run.
type ProgressView struct {
	State       string `json:"state"`
	Iterations  int    `json:"iterations"`
	Evaluations int    `json:"evaluations"`
	Steps       int    `json:"steps"`
	InitialCost int    `json:"initial_cost"`
	CurrentCost int    `json:"current_cost"`
	BestCost    int    `json:"best_cost"`
}

// StatusResponse describes a run, live or persisted.
type StatusResponse struct {
	RunID      string         `json:"run_id"`
	Status     storage.Status `json:"status"`
	Instance   string         `json:"instance"`
	Dimension  int            `json:"dimension"`
	Algorithm  string         `json:"algorithm"`
	Progress   *ProgressView  `json:"progress,omitempty"`
	BestCost   int            `json:"best_cost"`
	Tour       []int          `json:"tour,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Error      string         `json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	DurationMS float64        `json:"duration_ms,omitempty"`
}

// start validates a request and queues its run.
func (s *Server) start(req SolveRequest) (*SolveResponse, error) {
	cfg, err := s.requestConfig(req)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = "unnamed"
	}
	inst, err := atsp.NewInstance(name, req.Matrix)
	if err != nil {
		return nil, errors.E(component, "start", err, "invalid instance")
	}

	id := s.newID()
	engine, err := search.New(cfg, inst, search.WithLogger(s.engines.With(zap.String("run_id", id))))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	state := &RunState{
		ID:        id,
		Status:    storage.StatusQueued,
		Instance:  name,
		Dimension: inst.Dimension(),
		Config:    cfg,
		CreatedAt: time.Now().UTC(),
		engine:    engine,
		cancel:    cancel,
	}

	s.runsMu.Lock()
	s.runs[id] = state
	s.runsMu.Unlock()

	s.logger.Info("Run queued", map[string]interface{}{
		"run_id":    id,
		"instance":  name,
		"dimension": inst.Dimension(),
		"algorithm": string(cfg.Algorithm),
	})

	s.wg.Add(1)
	go s.execute(ctx, state)

	return &SolveResponse{RunID: id, Status: storage.StatusQueued}, nil
}

// requestConfig overlays the request's config on the server defaults and
// applies the time budget cap.
func (s *Server) requestConfig(req SolveRequest) (search.Config, error) {
	cfg, err := s.cfg.SearchConfig()
	if err != nil {
		return search.Config{}, err
	}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return search.Config{}, errors.E(component, "start", errors.ErrMalformed, "invalid config: %v", err)
		}
	}
	if req.TimeBudget != "" {
		d, err := time.ParseDuration(req.TimeBudget)
		if err != nil {
			return search.Config{}, errors.E(component, "start", errors.ErrMalformed, "invalid time_budget: %v", err)
		}
		cfg.TimeBudget = d
	}

	if limit := s.cfg.Optimization.MaxTimeBudget; limit > 0 {
		if cfg.TimeBudget > limit {
			return search.Config{}, optimization.Invalidf(component, "start",
				"time budget %s exceeds the server limit of %s", cfg.TimeBudget, limit)
		}
		if cfg.TimeBudget == 0 {
			cfg.TimeBudget = limit
		}
	}
	return cfg, nil
}

// execute waits for a worker slot, runs the search and records the outcome.
func (s *Server) execute(ctx context.Context, state *RunState) {
	defer s.wg.Done()
	defer state.cancel()

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		s.finish(state, nil, ctx.Err())
		return
	}

	s.setStatus(state, storage.StatusRunning)
	alg := string(state.Config.Algorithm)
	s.metrics.RunStarted(alg)

	res, err := state.engine.Run(ctx)

	s.metrics.RunFinished(alg, res, err)
	s.finish(state, res, err)
}

func (s *Server) setStatus(state *RunState, status storage.Status) {
	s.runsMu.Lock()
	state.Status = status
	s.runsMu.Unlock()
}

// finish persists the outcome before publishing the terminal status, so a
// client that observes a finished run can also list it. Persisted runs leave
// the in-memory registry.
func (s *Server) finish(state *RunState, res *optimization.Result, err error) {
	now := time.Now().UTC()

	// Only this goroutine writes state, so the copy needs no lock.
	final := *state
	final.result = res
	final.err = err
	final.EndTime = &now
	switch {
	case err == nil:
		final.Status = storage.StatusCompleted
	case errors.Is(err, context.Canceled):
		final.Status = storage.StatusCancelled
	default:
		final.Status = storage.StatusFailed
	}
	record := s.record(&final)

	fields := map[string]interface{}{
		"run_id": state.ID,
		"status": string(record.Status),
		"cost":   record.BestCost,
	}
	if record.Status == storage.StatusFailed {
		fields["error"] = err.Error()
		s.logger.Error("Run failed", fields)
	} else {
		s.logger.Info("Run finished", fields)
	}

	persisted := false
	if s.store != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.store.SaveRun(saveCtx, record); err != nil {
			s.logger.Error("Failed to persist run", map[string]interface{}{
				"run_id": state.ID,
				"error":  err.Error(),
			})
		} else {
			persisted = true
		}
		cancel()
	}

	// A persisted run is served from the store from now on. Otherwise the
	// outcome stays in memory, but the engine and its neighbourhood go.
	s.runsMu.Lock()
	state.engine = nil
	if persisted {
		delete(s.runs, state.ID)
	} else {
		state.result = final.result
		state.err = final.err
		state.EndTime = final.EndTime
		state.Status = final.Status
	}
	s.runsMu.Unlock()
}

// record reads state; callers hold runsMu unless state is private to them.
func (s *Server) record(state *RunState) storage.RunRecord {
	rec := storage.RunRecord{
		ID:        state.ID,
		Instance:  state.Instance,
		Dimension: state.Dimension,
		Config:    state.Config,
		Status:    state.Status,
		CreatedAt: state.CreatedAt,
	}
	if state.EndTime != nil {
		rec.FinishedAt = *state.EndTime
	}
	if state.err != nil {
		rec.Error = state.err.Error()
	}
	if res := state.result; res != nil {
		rec.Reason = string(res.Reason)
		rec.InitialCost = res.Context.InitialCost
		rec.BestCost = res.Context.BestCost
		rec.Iterations = res.Context.Iterations
		rec.Evaluations = res.Context.Evaluations
		rec.Steps = res.Context.Steps
		rec.Tour = append([]int(nil), res.Tour...)
		rec.Duration = res.Duration
	}
	return rec
}

// status reports a live run from memory, falling back to the store.
func (s *Server) status(ctx context.Context, id string) (*StatusResponse, error) {
	s.runsMu.RLock()
	state, ok := s.runs[id]
	var (
		rec    storage.RunRecord
		engine *search.Engine
	)
	if ok {
		rec = s.record(state)
		engine = state.engine
	}
	s.runsMu.RUnlock()

	if !ok {
		if s.store == nil {
			return nil, errors.E(component, "status", errors.ErrNotFound, "run %s not found", id)
		}
		stored, found, err := s.store.GetRun(ctx, id)
		if err != nil {
			return nil, errors.E(component, "status", err, "load run %s", id)
		}
		if !found {
			return nil, errors.E(component, "status", errors.ErrNotFound, "run %s not found", id)
		}
		return statusFromRecord(stored), nil
	}

	resp := statusFromRecord(rec)
	if engine != nil && !rec.Status.Terminal() {
		p := engine.Progress()
		resp.Progress = &ProgressView{
			State:       p.State.String(),
			Iterations:  p.Iterations,
			Evaluations: p.Evaluations,
			Steps:       p.Steps,
			InitialCost: p.InitialCost,
			CurrentCost: p.CurrentCost,
			BestCost:    p.BestCost,
		}
		resp.BestCost = p.BestCost
		resp.Tour = engine.BestTour()
	}
	return resp, nil
}

func statusFromRecord(rec storage.RunRecord) *StatusResponse {
	resp := &StatusResponse{
		RunID:     rec.ID,
		Status:    rec.Status,
		Instance:  rec.Instance,
		Dimension: rec.Dimension,
		Algorithm: string(rec.Config.Algorithm),
		BestCost:  rec.BestCost,
		Tour:      rec.Tour,
		Reason:    rec.Reason,
		Error:     rec.Error,
		CreatedAt: rec.CreatedAt,
	}
	if !rec.FinishedAt.IsZero() {
		finished := rec.FinishedAt
		resp.FinishedAt = &finished
		resp.DurationMS = float64(rec.Duration.Microseconds()) / 1000.0
	}
	return resp
}

// cancel requests cancellation; it takes effect between iterations.
func (s *Server) cancelRun(ctx context.Context, id string) error {
	s.runsMu.RLock()
	state, ok := s.runs[id]
	var status storage.Status
	if ok {
		status = state.Status
	}
	s.runsMu.RUnlock()

	if !ok {
		if s.store == nil {
			return errors.E(component, "cancel", errors.ErrNotFound, "run %s not found", id)
		}
		stored, found, err := s.store.GetRun(ctx, id)
		if err != nil {
			return errors.E(component, "cancel", err, "load run %s", id)
		}
		if !found {
			return errors.E(component, "cancel", errors.ErrNotFound, "run %s not found", id)
		}
		// Only finished runs leave the registry.
		return errors.E(component, "cancel", errors.ErrConflict, "cannot cancel run with status: %s", stored.Status)
	}
	if status.Terminal() {
		return errors.E(component, "cancel", errors.ErrConflict, "cannot cancel run with status: %s", status)
	}

	state.cancel()
	s.logger.Info("Run cancellation requested", map[string]interface{}{
		"run_id": id,
	})
	return nil
}

// Close cancels every active run and waits for them to wind down.
func (s *Server) Close() error {
	s.runsMu.RLock()
	for _, state := range s.runs {
		state.cancel()
	}
	s.runsMu.RUnlock()

	s.wg.Wait()
	return nil
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	if limit := s.cfg.HTTP.MaxBodyBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	var req SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, errors.E(component, "solve", errors.ErrMalformed, "invalid request body: %v", err))
		return
	}

	resp, err := s.start(req)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondJSON(w, http.StatusOK, []*StatusResponse{})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, errors.E(component, "list", errors.ErrMalformed, "invalid limit %q", v))
			return
		}
		limit = n
	}

	records, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, errors.E(component, "list", err, "list runs"))
		return
	}
	out := make([]*StatusResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, statusFromRecord(rec))
	}
	s.respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.cancelRun(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "cancellation requested",
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Failed to write response", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	code := errors.StatusCode(err)
	if code >= http.StatusInternalServerError {
		fields := map[string]interface{}{"error": err.Error()}
		if stack := errors.StackOf(err); len(stack) > 0 {
			fields["stack"] = strings.Join(stack, "\n")
		}
		s.logger.Error("Request failed", fields)
	}
	s.respondJSON(w, code, map[string]interface{}{
		"error": err.Error(),
	})
}
