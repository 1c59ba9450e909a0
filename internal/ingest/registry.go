// Package ingest records documents the operator attaches to the session.
//
// Only names and sizes are kept. File contents are never read or uploaded.
package ingest

import (
	"sync"

	"github.com/mozaika228/codebaseagent/internal/logging"
	"github.com/mozaika228/codebaseagent/internal/metrics"
)

// File is a candidate document as picked by the operator.
type File struct {
	Name string
	Size int64
}

// Record is one ingested document.
type Record struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Registry is the ordered, append-only list of ingested documents.
// Duplicate names are kept; each batch is appended after the previous one.
type Registry struct {
	mu      sync.RWMutex
	records []Record
	metrics *metrics.Metrics
	log     *logging.Logger
}

// NewRegistry creates an empty registry reporting to m.
// A nil m reports to the global metrics.
func NewRegistry(m *metrics.Metrics) *Registry {
	if m == nil {
		m = metrics.Global()
	}
	return &Registry{
		metrics: m,
		log:     logging.New("ingest"),
	}
}

// Ingest appends one record per file, in order. A nil or empty batch is a no-op.
func (r *Registry) Ingest(files []File) {
	if len(files) == 0 {
		return
	}

	r.mu.Lock()
	for _, f := range files {
		r.records = append(r.records, Record{Name: f.Name, Size: f.Size})
	}
	total := len(r.records)
	r.mu.Unlock()

	r.metrics.RecordDocuments(len(files))
	r.log.Info("documents_ingested", map[string]interface{}{
		"batch": len(files),
		"total": total,
	})
}

// Records returns a copy of the ingested documents.
func (r *Registry) Records() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// TotalBytes sums the sizes of all records.
func (r *Registry) TotalBytes() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, rec := range r.records {
		n += rec.Size
	}
	return n
}
