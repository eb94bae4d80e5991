package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hugo-lorenzo-mato/actionrun/internal/core"
)

// MemoryDSN opens a private in-memory SQLite database.
const MemoryDSN = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	owner TEXT NOT NULL,
	data TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_owner ON runs(owner, seq);
`

var _ core.RunStore = (*SQLite)(nil)

// SQLite is a RunStore backed by database/sql and modernc.org/sqlite.
// Each run is kept as a JSON document; updates read, patch and rewrite the
// document inside one transaction.
type SQLite struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLite opens (or creates) the database at dsn and applies the schema.
// An empty dsn opens a private in-memory database.
func NewSQLite(dsn string) (*SQLite, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("applying schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &SQLite{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Create stores a new pending run for owner.
func (s *SQLite) Create(ctx context.Context, owner string, in core.NewRun) (*core.Run, error) {
	run := newRecord(uuid.New().String(), owner, s.now(), in)

	data, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("marshaling run: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, owner, data) VALUES (?, ?, ?)`,
		run.ID, owner, string(data),
	); err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	return run.Clone(), nil
}

// Get returns the owner's run with the given id.
func (s *SQLite) Get(ctx context.Context, owner, id string) (*core.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM runs WHERE id = ? AND owner = ?`, id, owner)
	return scanRun(row, owner, id)
}

// Update applies patch to the stored document inside a transaction.
func (s *SQLite) Update(ctx context.Context, owner, id string, patch core.RunPatch) (*core.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanRun(
		tx.QueryRowContext(ctx, `SELECT data FROM runs WHERE id = ? AND owner = ?`, id, owner),
		owner, id,
	)
	if err != nil {
		return nil, err
	}

	next, err := current.Apply(patch)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("marshaling run: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET data = ? WHERE id = ? AND owner = ?`,
		string(data), id, owner,
	); err != nil {
		return nil, fmt.Errorf("updating run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return next, nil
}

// List returns the owner's runs in creation order.
func (s *SQLite) List(ctx context.Context, owner string) ([]*core.Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM runs WHERE owner = ? ORDER BY seq`, owner)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*core.Run, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run, err := decodeRun(data, owner)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row *sql.Row, owner, id string) (*core.Run, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound("run", id)
		}
		return nil, fmt.Errorf("reading run: %w", err)
	}
	return decodeRun(data, owner)
}

// decodeRun restores a run document. The owner token is not part of the
// JSON form, so it is taken from the row.
func decodeRun(data, owner string) (*core.Run, error) {
	var run core.Run
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("decoding run: %w", err)
	}
	run.OwnerToken = owner
	return &run, nil
}
