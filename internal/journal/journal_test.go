package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozaika228/codebaseagent/internal/store"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, j.Record(ctx, Entry{
		Kind: "import", Seq: 1, Target: "https://example.com/org/repo",
		Outcome: OutcomeSucceeded, Identifier: "r1", Duration: 120 * time.Millisecond,
		RecordedAt: base,
	}))
	require.NoError(t, j.Record(ctx, Entry{
		Kind: "analysis", Seq: 2, Target: "r1",
		Outcome: OutcomeFailed, Detail: "HTTP 404: repo_id not found",
		RecordedAt: base.Add(time.Second),
	}))

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "analysis", entries[0].Kind)
	assert.Equal(t, OutcomeFailed, entries[0].Outcome)
	assert.Equal(t, "HTTP 404: repo_id not found", entries[0].Detail)
	assert.NotEmpty(t, entries[0].ID)

	assert.Equal(t, "import", entries[1].Kind)
	assert.Equal(t, uint64(1), entries[1].Seq)
	assert.Equal(t, "r1", entries[1].Identifier)
	assert.Equal(t, 120*time.Millisecond, entries[1].Duration)
}

func TestRecentLimit(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, j.Record(ctx, Entry{Kind: "import", Seq: uint64(i), Target: "u", Outcome: OutcomeStale}))
	}

	entries, err := j.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, Entry{Kind: "import", Seq: 1, Target: "u", Outcome: OutcomeSucceeded, Identifier: "r9"}))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()

	entries, err := j.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "r9", entries[0].Identifier)
	assert.Equal(t, path, j.Path())
}

func TestListFilters(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	seed := []Entry{
		{Kind: "import", Seq: 1, Target: "u1", Outcome: OutcomeStale},
		{Kind: "import", Seq: 2, Target: "u2", Outcome: OutcomeSucceeded, Identifier: "r2"},
		{Kind: "analysis", Seq: 1, Target: "r2", Outcome: OutcomeFailed, Detail: "HTTP 500: boom"},
	}
	for i, e := range seed {
		e.RecordedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, j.Record(ctx, e))
	}

	imports, err := j.List(ctx, store.DefaultFilter().WithWhere("kind", "import"))
	require.NoError(t, err)
	require.Len(t, imports, 2)
	assert.Equal(t, "u2", imports[0].Target)

	stale, err := j.List(ctx, store.DefaultFilter().WithWhere("kind", "import").WithWhere("outcome", "stale"))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, uint64(1), stale[0].Seq)

	page, err := j.List(ctx, store.DefaultFilter().WithLimit(1).WithOffset(1))
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "u2", page[0].Target)

	_, err = j.List(ctx, store.DefaultFilter().WithWhere("detail", "x"))
	assert.ErrorIs(t, err, store.ErrInvalidFilter)
}

func TestGet(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()

	require.NoError(t, j.Ping(ctx))
	require.NoError(t, j.Record(ctx, Entry{ID: "01FIXED", Kind: "import", Seq: 1, Target: "u", Outcome: OutcomeSucceeded, Identifier: "r1"}))

	e, err := j.Get(ctx, "01FIXED")
	require.NoError(t, err)
	assert.Equal(t, "r1", e.Identifier)

	_, err = j.Get(ctx, "missing")
	assert.True(t, store.IsNotFound(err))
	assert.EqualError(t, err, "attempt not found: missing")
}
