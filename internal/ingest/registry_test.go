package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozaika228/codebaseagent/internal/logging"
	"github.com/mozaika228/codebaseagent/internal/metrics"
)

func newRegistry(t *testing.T) (*Registry, *metrics.Metrics) {
	t.Helper()
	logging.Discard()
	m := metrics.New()
	return NewRegistry(m), m
}

func TestIngestAppendsInOrder(t *testing.T) {
	r, m := newRegistry(t)

	r.Ingest([]File{{Name: "a.md", Size: 10}, {Name: "b.pdf", Size: 2048}})
	r.Ingest([]File{{Name: "c.txt", Size: 0}})

	assert.Equal(t, []Record{
		{Name: "a.md", Size: 10},
		{Name: "b.pdf", Size: 2048},
		{Name: "c.txt", Size: 0},
	}, r.Records())
	assert.Equal(t, int64(2058), r.TotalBytes())
	assert.Equal(t, int64(3), m.DocumentsIngested.Load())
}

func TestIngestEmptyBatchIsNoop(t *testing.T) {
	r, m := newRegistry(t)
	r.Ingest([]File{{Name: "a.md", Size: 1}})

	r.Ingest(nil)
	r.Ingest([]File{})

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, int64(1), m.DocumentsIngested.Load())
}

func TestIngestKeepsDuplicates(t *testing.T) {
	r, _ := newRegistry(t)

	r.Ingest([]File{{Name: "notes.md", Size: 5}})
	r.Ingest([]File{{Name: "notes.md", Size: 7}})

	records := r.Records()
	require.Len(t, records, 2)
	assert.Equal(t, int64(5), records[0].Size)
	assert.Equal(t, int64(7), records[1].Size)
}

func TestRecordsReturnsCopy(t *testing.T) {
	r, _ := newRegistry(t)
	r.Ingest([]File{{Name: "a.md", Size: 1}})

	records := r.Records()
	records[0].Name = "mutated"

	assert.Equal(t, "a.md", r.Records()[0].Name)
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func TestStatFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "guide.md"), 42)
	writeFile(t, filepath.Join(dir, "sub", "design.pdf"), 7)

	files, err := StatFiles([]string{
		filepath.Join(dir, "guide.md"),
		filepath.Join(dir, "sub", "design.pdf"),
	})
	require.NoError(t, err)
	assert.Equal(t, []File{{Name: "guide.md", Size: 42}, {Name: "design.pdf", Size: 7}}, files)
}

func TestStatFilesErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := StatFiles([]string{filepath.Join(dir, "missing.md")})
	assert.Error(t, err)

	_, err = StatFiles([]string{dir})
	assert.ErrorContains(t, err, "is a directory")
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "README.md"), 1)
	writeFile(t, filepath.Join(dir, "docs", "intro.md"), 1)
	writeFile(t, filepath.Join(dir, "docs", "deep", "arch.md"), 1)
	writeFile(t, filepath.Join(dir, "docs", "diagram.png"), 1)

	paths, err := Expand(dir, []string{"docs/**/*.md", "*.md", "docs/intro.md"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "README.md"),
		filepath.Join(dir, "docs", "deep", "arch.md"),
		filepath.Join(dir, "docs", "intro.md"),
	}, paths)
}

func TestExpandAbsolutePattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), 1)

	paths, err := Expand("/nonexistent", []string{filepath.Join(dir, "*.txt")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.txt")}, paths)
}

func TestExpandInvalidPattern(t *testing.T) {
	_, err := Expand(t.TempDir(), []string{"docs/[a"})
	assert.Error(t, err)
}

func TestCandidatesSkipsHiddenAndDependencies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "main.go"), 1)
	writeFile(t, filepath.Join(dir, "docs", "a.md"), 1)
	writeFile(t, filepath.Join(dir, ".git", "HEAD"), 1)
	writeFile(t, filepath.Join(dir, "node_modules", "x", "index.js"), 1)
	writeFile(t, filepath.Join(dir, ".env"), 1)

	got, err := Candidates(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("docs", "a.md"), "main.go"}, got)

	got, err = Candidates(dir, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
