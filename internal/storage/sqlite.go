package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps run records in a SQLite database through the pure-Go
// modernc driver. Indexed columns mirror the JSON payload for listing.
type SQLiteStore struct {
	dsn string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(dsn string) *SQLiteStore {
	return &SQLiteStore{dsn: dsn}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dsn == "" {
		return errors.New("sqlite dsn is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return err
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run RunRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := encodeRun(run)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, instance, algorithm, status, best_cost, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			instance = excluded.instance,
			algorithm = excluded.algorithm,
			status = excluded.status,
			best_cost = excluded.best_cost,
			created_at = excluded.created_at,
			payload = excluded.payload
	`, run.ID, run.Instance, string(run.Config.Algorithm), string(run.Status), run.BestCost,
		run.CreatedAt.UTC().Format(time.RFC3339Nano), payload)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (RunRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return RunRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, false, nil
		}
		return RunRecord{}, false, err
	}

	run, err := decodeRun(payload)
	if err != nil {
		return RunRecord{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, payload FROM runs ORDER BY created_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		run, err := decodeRun(payload)
		if err != nil {
			return nil, fmt.Errorf("decode run %s: %w", id, err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) (bool, error) {
	db, err := s.getDB()
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			instance TEXT NOT NULL,
			algorithm TEXT NOT NULL,
			status TEXT NOT NULL,
			best_cost INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
	`)
	return err
}
