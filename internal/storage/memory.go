package storage

import (
	"context"
	"errors"
	"slices"
	"sync"
)

var errNotInitialized = errors.New("store is not initialized")

// MemoryStore keeps run records in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]RunRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runs == nil {
		s.runs = make(map[string]RunRecord)
	}
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runs == nil {
		return errNotInitialized
	}
	run.Tour = slices.Clone(run.Tour)
	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.runs == nil {
		return RunRecord{}, false, errNotInitialized
	}
	run, ok := s.runs[id]
	if ok {
		run.Tour = slices.Clone(run.Tour)
	}
	return run, ok, nil
}

// ListRuns returns the most recently created runs first.
func (s *MemoryStore) ListRuns(_ context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.runs == nil {
		return nil, errNotInitialized
	}
	out := make([]RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run)
	}
	slices.SortFunc(out, func(a, b RunRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) DeleteRun(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runs == nil {
		return false, errNotInitialized
	}
	_, ok := s.runs[id]
	delete(s.runs, id)
	return ok, nil
}
