// Package ledger keeps an audit trail of pipeline runs.
//
// Every stage outcome becomes one Entry. The Postgres recorder stores entries
// in a single table; Nop discards them when no database is configured.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Stage outcomes.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Entry is the outcome of one stage of one run.
type Entry struct {
	RunID     uuid.UUID
	Stage     string
	Status    string
	Rows      map[string]int // by table name
	StartedAt time.Time
	Duration  time.Duration
	Error     string
}

// Recorder persists stage outcomes.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards every entry.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Entry) error { return nil }

// Execer is the subset of pgxpool.Pool used by Postgres.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schemaSQL = `create table if not exists toxicprep_runs (
	run_id      uuid not null,
	stage       text not null,
	status      text not null,
	rows        jsonb not null default '{}',
	started_at  timestamptz not null,
	duration_ms bigint not null,
	error       text not null default '',
	primary key (run_id, stage, started_at)
)`

const insertSQL = `insert into toxicprep_runs(run_id, stage, status, rows, started_at, duration_ms, error)
	values($1, $2, $3, $4, $5, $6, $7)`

// Postgres records entries in the toxicprep_runs table.
type Postgres struct {
	db    Execer
	close func()
}

// NewPostgres wraps an existing connection.
func NewPostgres(db Execer) *Postgres {
	return &Postgres{db: db}
}

// Open connects to the database at dsn and checks it is reachable.
func Open(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach ledger database: %w", err)
	}
	return &Postgres{db: pool, close: pool.Close}, nil
}

// EnsureSchema creates the ledger table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create ledger table: %w", err)
	}
	return nil
}

// Record implements Recorder.
func (p *Postgres) Record(ctx context.Context, e Entry) error {
	rows := e.Rows
	if rows == nil {
		rows = map[string]int{}
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to encode row counts: %w", err)
	}

	_, err = p.db.Exec(ctx, insertSQL,
		e.RunID.String(), e.Stage, e.Status, string(payload),
		e.StartedAt, e.Duration.Milliseconds(), e.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record %s stage: %w", e.Stage, err)
	}
	return nil
}

// Close releases the connection pool opened by Open.
func (p *Postgres) Close() {
	if p.close != nil {
		p.close()
	}
}
