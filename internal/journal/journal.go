// Package journal records import and analysis attempts in a local sqlite file.
// It is an operator's audit trail; session state is never restored from it.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/mozaika228/codebaseagent/internal/store"
)

// DefaultLimit is the number of entries Recent returns for a non-positive limit.
const DefaultLimit = 20

// Outcome of one completed request.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeStale     Outcome = "stale"
)

// Entry is one journal row.
type Entry struct {
	ID         string
	Kind       string // import or analysis
	Seq        uint64
	Target     string // repo URL for imports, repo ID for analyses
	Outcome    Outcome
	Identifier string // repo_id or analysis_id returned by the service
	Detail     string
	Duration   time.Duration
	RecordedAt time.Time
}

// filterColumns are the columns a store.Filter may constrain.
var filterColumns = map[string]bool{"kind": true, "outcome": true, "target": true}

const selectColumns = `SELECT id, kind, seq, target, outcome, identifier, detail, duration_ms, recorded_at FROM attempts`

var _ store.Store = (*Journal)(nil)

// Journal is a sqlite-backed append-only log.
type Journal struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	j := &Journal{db: db, path: path}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return j, nil
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		seq INTEGER NOT NULL,
		target TEXT NOT NULL,
		outcome TEXT NOT NULL,
		identifier TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		recorded_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_recorded ON attempts(recorded_at DESC);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Path returns the database file location.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends e, filling ID and RecordedAt when unset.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO attempts (id, kind, seq, target, outcome, identifier, detail, duration_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Kind, int64(e.Seq), e.Target, string(e.Outcome), e.Identifier, e.Detail, e.Duration.Milliseconds(), e.RecordedAt)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// Ping checks the database answers.
func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// Get returns the entry with the given ID.
func (j *Journal) Get(ctx context.Context, id string) (*Entry, error) {
	rows, err := j.db.QueryContext(ctx, selectColumns+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query attempt: %w", err)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, store.NewNotFoundError("attempt", id)
	}
	return &entries[0], nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return j.List(ctx, store.DefaultFilter().WithLimit(limit))
}

// List returns entries matching f, newest first. A non-positive limit
// means DefaultLimit.
func (j *Journal) List(ctx context.Context, f store.Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var (
		conds []string
		args  []any
	)
	for col, val := range f.Where {
		if !filterColumns[col] {
			return nil, fmt.Errorf("%w: %s", store.ErrInvalidFilter, col)
		}
		conds = append(conds, col+" = ?")
		args = append(args, val)
	}

	query := selectColumns
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY recorded_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var seq, durationMs int64
		var outcome string
		if err := rows.Scan(&e.ID, &e.Kind, &seq, &e.Target, &outcome, &e.Identifier, &e.Detail, &durationMs, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		e.Seq = uint64(seq)
		e.Outcome = Outcome(outcome)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
