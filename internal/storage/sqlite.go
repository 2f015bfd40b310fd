package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"math"
	"sync"

	"github.com/san-kum/humperdink/internal/sim"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps run metadata as a JSON payload and samples as rows.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, run *Run, samples []sim.Sample) (string, error) {
	db, err := s.getDB()
	if err != nil {
		return "", err
	}
	if run == nil || run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	payload, err := json.Marshal(run)
	if err != nil {
		return "", err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, name, created_at, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			created_at = excluded.created_at,
			payload = excluded.payload
	`, run.ID, run.Name, run.Timestamp.UTC().UnixMilli(), payload)
	if err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM samples WHERE run_id = ?`, run.ID); err != nil {
		return "", err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (run_id, seq, step, time, x, y, vx, vy, w, com_x, com_y, energy, impulse)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, smp := range samples {
		args := []any{run.ID, i, smp.Step}
		for _, v := range sampleValues(smp) {
			args = append(args, v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return "", fmt.Errorf("insert sample %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return run.ID, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Run, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM runs ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var run Run
		if err := json.Unmarshal(payload, &run); err != nil {
			return nil, fmt.Errorf("decode run %s: %w", id, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*Run, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	var run Run
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

func (s *SQLiteStore) LoadSamples(ctx context.Context, id string) ([]sim.Sample, error) {
	if _, err := s.Load(ctx, id); err != nil {
		return nil, err
	}
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT step, time, x, y, vx, vy, w, com_x, com_y, energy, impulse
		FROM samples WHERE run_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := make([]sim.Sample, 0)
	for rows.Next() {
		var step int
		cols := make([]sql.NullFloat64, len(sampleHeader)-1)
		dest := []any{&step}
		for i := range cols {
			dest = append(dest, &cols[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		// SQLite stores NaN as NULL.
		v := make([]float64, len(cols))
		for i, c := range cols {
			v[i] = math.NaN()
			if c.Valid {
				v[i] = c.Float64
			}
		}
		samples = append(samples, sampleFromValues(step, v))
	}
	return samples, rows.Err()
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
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS samples (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			step INTEGER NOT NULL,
			time REAL,
			x REAL,
			y REAL,
			vx REAL,
			vy REAL,
			w REAL,
			com_x REAL,
			com_y REAL,
			energy REAL,
			impulse REAL,
			PRIMARY KEY (run_id, seq)
		);
	`)
	return err
}
