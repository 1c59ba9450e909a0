// Package metrics provides console counters and a Prometheus-compatible endpoint.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mozaika228/codebaseagent/internal/logging"
)

// Metrics holds runtime counters for one console process
type Metrics struct {
	// Import round-trips
	ImportRequests atomic.Int64
	ImportFailures atomic.Int64

	// Analysis round-trips
	AnalysisRequests atomic.Int64
	AnalysisFailures atomic.Int64

	// Completions discarded because a newer request superseded them
	StaleDiscards atomic.Int64

	// Local workflows
	MessagesSent      atomic.Int64
	DocumentsIngested atomic.Int64

	// Timing (last completed round-trip in ms)
	LastImportMs   atomic.Int64
	LastAnalysisMs atomic.Int64

	startTime time.Time
}

// Snapshot is a point-in-time copy used for rendering.
type Snapshot struct {
	ImportRequests    int64
	ImportFailures    int64
	AnalysisRequests  int64
	AnalysisFailures  int64
	StaleDiscards     int64
	MessagesSent      int64
	DocumentsIngested int64
	LastImportMs      int64
	LastAnalysisMs    int64
	Uptime            time.Duration
}

var (
	global     *Metrics
	globalOnce sync.Once
)

// Global returns the global metrics instance
func Global() *Metrics {
	globalOnce.Do(func() {
		global = New()
	})
	return global
}

// New creates an independent metrics set (for tests and embedding).
func New() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordImport records a completed import round-trip
func (m *Metrics) RecordImport(success bool, d time.Duration) {
	m.ImportRequests.Add(1)
	if !success {
		m.ImportFailures.Add(1)
	}
	m.LastImportMs.Store(d.Milliseconds())
}

// RecordAnalysis records a completed analysis round-trip
func (m *Metrics) RecordAnalysis(success bool, d time.Duration) {
	m.AnalysisRequests.Add(1)
	if !success {
		m.AnalysisFailures.Add(1)
	}
	m.LastAnalysisMs.Store(d.Milliseconds())
}

// RecordStale records a discarded completion
func (m *Metrics) RecordStale() {
	m.StaleDiscards.Add(1)
}

// RecordMessage records an accepted chat message
func (m *Metrics) RecordMessage() {
	m.MessagesSent.Add(1)
}

// RecordDocuments records n ingested document records
func (m *Metrics) RecordDocuments(n int) {
	m.DocumentsIngested.Add(int64(n))
}

// Snapshot copies the current values
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		ImportRequests:    m.ImportRequests.Load(),
		ImportFailures:    m.ImportFailures.Load(),
		AnalysisRequests:  m.AnalysisRequests.Load(),
		AnalysisFailures:  m.AnalysisFailures.Load(),
		StaleDiscards:     m.StaleDiscards.Load(),
		MessagesSent:      m.MessagesSent.Load(),
		DocumentsIngested: m.DocumentsIngested.Load(),
		LastImportMs:      m.LastImportMs.Load(),
		LastAnalysisMs:    m.LastAnalysisMs.Load(),
		Uptime:            time.Since(m.startTime),
	}
}

type metricDef struct {
	name  string
	help  string
	kind  string
	value func(s Snapshot) int64
}

var metricDefs = []metricDef{
	{"cba_import_requests_total", "Total import round-trips", "counter", func(s Snapshot) int64 { return s.ImportRequests }},
	{"cba_import_failures_total", "Total failed imports", "counter", func(s Snapshot) int64 { return s.ImportFailures }},
	{"cba_analysis_requests_total", "Total analysis round-trips", "counter", func(s Snapshot) int64 { return s.AnalysisRequests }},
	{"cba_analysis_failures_total", "Total failed analysis requests", "counter", func(s Snapshot) int64 { return s.AnalysisFailures }},
	{"cba_stale_discards_total", "Completions discarded as stale", "counter", func(s Snapshot) int64 { return s.StaleDiscards }},
	{"cba_messages_sent_total", "Accepted chat messages", "counter", func(s Snapshot) int64 { return s.MessagesSent }},
	{"cba_documents_ingested_total", "Document records ingested", "counter", func(s Snapshot) int64 { return s.DocumentsIngested }},
	{"cba_last_import_duration_ms", "Last import round-trip duration", "gauge", func(s Snapshot) int64 { return s.LastImportMs }},
	{"cba_last_analysis_duration_ms", "Last analysis round-trip duration", "gauge", func(s Snapshot) int64 { return s.LastAnalysisMs }},
}

// Handler returns an HTTP handler for /metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")

		s := m.Snapshot()

		fmt.Fprintf(w, "# HELP cba_uptime_seconds Time since the console started\n")
		fmt.Fprintf(w, "# TYPE cba_uptime_seconds gauge\n")
		fmt.Fprintf(w, "cba_uptime_seconds %.2f\n", s.Uptime.Seconds())

		for _, d := range metricDefs {
			fmt.Fprintf(w, "\n# HELP %s %s\n", d.name, d.help)
			fmt.Fprintf(w, "# TYPE %s %s\n", d.name, d.kind)
			fmt.Fprintf(w, "%s %d\n", d.name, d.value(s))
		}
	}
}

// Server wraps the metrics HTTP server
type Server struct {
	srv *http.Server
	ln  net.Listener
}

// NewServer creates a metrics server for m on addr (host:port)
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start binds the listener and serves in background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}
	s.ln = ln
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.New("metrics").Error("serve_failed", map[string]interface{}{"addr": s.srv.Addr}, err)
		}
	}()
	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.srv.Addr
	}
	return s.ln.Addr().String()
}

// Stop gracefully shuts down the metrics server
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
