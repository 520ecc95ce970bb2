// Package storage persists finished search runs.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/copyleftdev/atsp/internal/optimization/search"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// RunRecord is the persisted summary of a run.
type RunRecord struct {
	ID          string        `json:"id"`
	Instance    string        `json:"instance"`
	Dimension   int           `json:"dimension"`
	Config      search.Config `json:"config"`
	Status      Status        `json:"status"`
	Reason      string        `json:"reason,omitempty"`
	Error       string        `json:"error,omitempty"`
	InitialCost int           `json:"initial_cost"`
	BestCost    int           `json:"best_cost"`
	Iterations  int           `json:"iterations"`
	Evaluations int           `json:"evaluations"`
	Steps       int           `json:"steps"`
	Tour        []int         `json:"tour,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	FinishedAt  time.Time     `json:"finished_at,omitzero"`
	Duration    time.Duration `json:"duration"`
}

// Store is the persistence contract for run records. Get reports found=false
// rather than an error for unknown ids.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run RunRecord) error
	GetRun(ctx context.Context, id string) (RunRecord, bool, error)
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	DeleteRun(ctx context.Context, id string) (bool, error)
}

// NewStore builds the backend named by kind. dsn is only used by sqlite.
func NewStore(kind, dsn string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// CloseIfSupported closes backends that hold resources.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

func encodeRun(run RunRecord) ([]byte, error) {
	return json.Marshal(run)
}

func decodeRun(payload []byte) (RunRecord, error) {
	var run RunRecord
	err := json.Unmarshal(payload, &run)
	return run, err
}
