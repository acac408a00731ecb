package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	sql  string
	args []any
}

type fakeExec struct {
	calls []call
	err   error
}

func (f *fakeExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, call{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	assert.NoError(t, r.Record(context.Background(), Entry{Stage: "download"}))
}

func TestPostgres_EnsureSchema(t *testing.T) {
	db := &fakeExec{}
	require.NoError(t, NewPostgres(db).EnsureSchema(context.Background()))
	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].sql, "create table if not exists toxicprep_runs")
}

func TestPostgres_Record(t *testing.T) {
	db := &fakeExec{}
	p := NewPostgres(db)
	id := uuid.New()
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	err := p.Record(context.Background(), Entry{
		RunID:     id,
		Stage:     "preprocess",
		Status:    StatusOK,
		Rows:      map[string]int{"train": 4, "val": 1},
		StartedAt: started,
		Duration:  1500 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Len(t, db.calls, 1)

	args := db.calls[0].args
	require.Len(t, args, 7)
	assert.Equal(t, id.String(), args[0])
	assert.Equal(t, "preprocess", args[1])
	assert.Equal(t, StatusOK, args[2])
	assert.JSONEq(t, `{"train":4,"val":1}`, args[3].(string))
	assert.Equal(t, started, args[4])
	assert.Equal(t, int64(1500), args[5])
	assert.Empty(t, args[6])
}

func TestPostgres_RecordNilRows(t *testing.T) {
	db := &fakeExec{}
	require.NoError(t, NewPostgres(db).Record(context.Background(), Entry{Stage: "download", Status: StatusFailed, Error: "boom"}))
	assert.Equal(t, "{}", db.calls[0].args[3])
	assert.Equal(t, "boom", db.calls[0].args[6])
}

func TestPostgres_Errors(t *testing.T) {
	db := &fakeExec{err: errors.New("connection reset")}
	p := NewPostgres(db)

	err := p.Record(context.Background(), Entry{Stage: "convert"})
	assert.ErrorContains(t, err, "failed to record convert stage")
	assert.ErrorIs(t, err, db.err)

	assert.ErrorContains(t, p.EnsureSchema(context.Background()), "failed to create ledger table")

	p.Close() // no pool to release
}
