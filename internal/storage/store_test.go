package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/atsp/internal/optimization/moves"
	"github.com/copyleftdev/atsp/internal/optimization/search"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func sampleRun(id string, created time.Time) RunRecord {
	cfg := search.DefaultConfig()
	cfg.Algorithm = search.AlgorithmTabu
	cfg.Moves = moves.EdgeReversals
	cfg.Seed = 7

	return RunRecord{
		ID:          id,
		Instance:    "br17",
		Dimension:   4,
		Config:      cfg,
		Status:      StatusCompleted,
		Reason:      "explorer",
		InitialCost: 40,
		BestCost:    25,
		Iterations:  12,
		Evaluations: 72,
		Steps:       3,
		Tour:        []int{0, 1, 2, 3},
		CreatedAt:   created.UTC(),
		FinishedAt:  created.Add(time.Second).UTC(),
		Duration:    time.Second,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Init(ctx))

			want := sampleRun("run-1", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
			require.NoError(t, store.SaveRun(ctx, want))

			got, ok, err := store.GetRun(ctx, "run-1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, want.Tour, got.Tour)
			assert.Equal(t, want.Config.Moves, got.Config.Moves)
			assert.Equal(t, search.AlgorithmTabu, got.Config.Algorithm)
			assert.Equal(t, 25, got.BestCost)
			assert.True(t, want.CreatedAt.Equal(got.CreatedAt))

			_, ok, err = store.GetRun(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStoreUpsert(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Init(ctx))

			run := sampleRun("run-1", time.Now())
			run.Status = StatusRunning
			require.NoError(t, store.SaveRun(ctx, run))

			run.Status = StatusCancelled
			run.BestCost = 30
			require.NoError(t, store.SaveRun(ctx, run))

			got, ok, err := store.GetRun(ctx, "run-1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, StatusCancelled, got.Status)
			assert.Equal(t, 30, got.BestCost)

			all, err := store.ListRuns(ctx, 0)
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Init(ctx))

			base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			for i := range 5 {
				run := sampleRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute))
				require.NoError(t, store.SaveRun(ctx, run))
			}

			runs, err := store.ListRuns(ctx, 3)
			require.NoError(t, err)
			require.Len(t, runs, 3)
			assert.Equal(t, "run-4", runs[0].ID)
			assert.Equal(t, "run-3", runs[1].ID)
			assert.Equal(t, "run-2", runs[2].ID)

			runs, err = store.ListRuns(ctx, 0)
			require.NoError(t, err)
			assert.Len(t, runs, 5)
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Init(ctx))
			require.NoError(t, store.SaveRun(ctx, sampleRun("run-1", time.Now())))

			deleted, err := store.DeleteRun(ctx, "run-1")
			require.NoError(t, err)
			assert.True(t, deleted)

			deleted, err = store.DeleteRun(ctx, "run-1")
			require.NoError(t, err)
			assert.False(t, deleted)

			_, ok, err := store.GetRun(ctx, "run-1")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStoreRequiresInit(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.SaveRun(context.Background(), sampleRun("run-1", time.Now()))
			assert.ErrorIs(t, err, errNotInitialized)
		})
	}
}

func TestMemoryStoreCopiesTour(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Init(context.Background()))

	run := sampleRun("run-1", time.Now())
	require.NoError(t, store.SaveRun(context.Background(), run))
	run.Tour[0] = 99

	got, _, err := store.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Tour[0])
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	first := NewSQLiteStore(path)
	require.NoError(t, first.Init(ctx))
	require.NoError(t, first.SaveRun(ctx, sampleRun("run-1", time.Now())))
	require.NoError(t, first.Close())

	second := NewSQLiteStore(path)
	require.NoError(t, second.Init(ctx))
	defer second.Close()

	got, ok, err := second.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "br17", got.Instance)
}

func TestNewStore(t *testing.T) {
	store, err := NewStore("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = NewStore("sqlite", filepath.Join(t.TempDir(), "x.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, store)
	assert.NoError(t, CloseIfSupported(store))

	_, err = NewStore("postgres", "")
	assert.Error(t, err)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusFailed.Terminal())
}
