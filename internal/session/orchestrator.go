package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mozaika228/codebaseagent/internal/api"
	"github.com/mozaika228/codebaseagent/internal/journal"
	"github.com/mozaika228/codebaseagent/internal/logging"
	"github.com/mozaika228/codebaseagent/internal/metrics"
)

// Kind names the two network operations.
type Kind string

const (
	KindImport   Kind = "import"
	KindAnalysis Kind = "analysis"
)

var (
	// ErrEmptyRepoURL is returned when an import is requested without a URL.
	ErrEmptyRepoURL = errors.New("repository URL is empty")

	// ErrNoRepository is returned when analysis is requested before an import completed.
	ErrNoRepository = errors.New("no imported repository")
)

// Client is the subset of the analysis service the orchestrator needs.
type Client interface {
	ImportRepository(ctx context.Context, repoURL, branch string) (api.ImportResult, error)
	RunAnalysis(ctx context.Context, repoID, commitRef string) (api.AnalysisResult, error)
}

// Recorder receives one entry per completion.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Config is supplied by the bootstrap layer.
type Config struct {
	// RepoURL is the initial repository URL shown to the operator.
	RepoURL string
	// Branch is sent with every import.
	Branch string
	// CommitRef is sent with every analysis; "HEAD" means the default branch tip.
	CommitRef string
}

// Request is an issued network call. Run performs it and may be called
// off the event loop; its Completion must be handed back to Apply.
type Request struct {
	Kind   Kind
	Seq    uint64
	Target string

	run func(ctx context.Context) Completion
}

// Run performs the call. It never touches the Store.
func (r *Request) Run(ctx context.Context) Completion {
	return r.run(ctx)
}

// Completion is the result of one Request.
type Completion struct {
	Kind   Kind
	Seq    uint64
	Target string // repo URL for imports, repo ID for analyses

	// Identifier is repo_id or analysis_id on success.
	Identifier string
	// RemoteStatus is the service's own status field.
	RemoteStatus string

	Err      error
	Duration time.Duration
}

// Outcome reports what Apply did with a Completion.
type Outcome struct {
	Kind    Kind
	Seq     uint64
	Applied bool // false when the completion was stale
	Err     error
	Session Session
}

// Orchestrator sequences import then analysis over a Store.
type Orchestrator struct {
	store   *Store
	client  Client
	cfg     Config
	journal Recorder
	metrics *metrics.Metrics
	log     *logging.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder journals every completion.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.journal = r }
}

// WithMetrics overrides the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator creates an orchestrator with a fresh idle session.
func NewOrchestrator(client Client, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:   NewStore(cfg.RepoURL),
		client:  client,
		cfg:     cfg,
		metrics: metrics.Global(),
		log:     logging.New("session"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Snapshot returns the current session.
func (o *Orchestrator) Snapshot() Session {
	return o.store.Snapshot()
}

// CanAnalyze reports whether the analysis action is available.
func (o *Orchestrator) CanAnalyze() bool {
	return o.store.Snapshot().RepoID != ""
}

// RequestImport moves the session to importing and returns the call to run.
// Allowed from any state; an outstanding request is not cancelled.
func (o *Orchestrator) RequestImport(repoURL string) (*Request, error) {
	repoURL = strings.TrimSpace(repoURL)
	if repoURL == "" {
		return nil, ErrEmptyRepoURL
	}

	seq := o.store.beginImport(repoURL)
	branch := o.cfg.Branch
	o.log.Info("import_requested", map[string]interface{}{"seq": seq, "repo_url": repoURL, "branch": branch})

	return &Request{
		Kind:   KindImport,
		Seq:    seq,
		Target: repoURL,
		run: func(ctx context.Context) Completion {
			start := time.Now()
			res, err := o.client.ImportRepository(ctx, repoURL, branch)
			return Completion{
				Kind:         KindImport,
				Seq:          seq,
				Target:       repoURL,
				Identifier:   res.RepoID,
				RemoteStatus: res.Status,
				Err:          err,
				Duration:     time.Since(start),
			}
		},
	}, nil
}

// RequestAnalysis moves the session to analyzing and returns the call to run.
// Returns ErrNoRepository, and leaves the session untouched, until an
// import has completed.
func (o *Orchestrator) RequestAnalysis() (*Request, error) {
	seq, repoID, ok := o.store.beginAnalysis()
	if !ok {
		return nil, ErrNoRepository
	}

	commitRef := o.cfg.CommitRef
	o.log.Info("analysis_requested", map[string]interface{}{"seq": seq, "repo_id": repoID, "commit_sha": commitRef})

	return &Request{
		Kind:   KindAnalysis,
		Seq:    seq,
		Target: repoID,
		run: func(ctx context.Context) Completion {
			start := time.Now()
			res, err := o.client.RunAnalysis(ctx, repoID, commitRef)
			return Completion{
				Kind:         KindAnalysis,
				Seq:          seq,
				Target:       repoID,
				Identifier:   res.AnalysisID,
				RemoteStatus: res.Status,
				Err:          err,
				Duration:     time.Since(start),
			}
		},
	}, nil
}

// Apply writes a completion onto the session unless a newer request of
// the same kind has been issued since, in which case it is discarded.
func (o *Orchestrator) Apply(ctx context.Context, c Completion) Outcome {
	applied := o.store.apply(c, api.Diagnostic(c.Err))

	fields := map[string]interface{}{
		"seq":         c.Seq,
		"kind":        string(c.Kind),
		"target":      c.Target,
		"duration_ms": c.Duration.Milliseconds(),
	}

	outcome := journal.OutcomeSucceeded
	switch {
	case !applied:
		outcome = journal.OutcomeStale
		o.metrics.RecordStale()
		o.log.Info("completion_discarded", fields)
	case c.Err != nil:
		outcome = journal.OutcomeFailed
		o.log.Warn("request_failed", fields, c.Err)
	default:
		fields["identifier"] = c.Identifier
		o.log.Info("request_applied", fields)
	}

	switch c.Kind {
	case KindImport:
		o.metrics.RecordImport(c.Err == nil, c.Duration)
	case KindAnalysis:
		o.metrics.RecordAnalysis(c.Err == nil, c.Duration)
	}

	if o.journal != nil {
		entry := journal.Entry{
			Kind:       string(c.Kind),
			Seq:        c.Seq,
			Target:     c.Target,
			Outcome:    outcome,
			Identifier: c.Identifier,
			Detail:     api.Diagnostic(c.Err),
			Duration:   c.Duration,
		}
		if err := o.journal.Record(ctx, entry); err != nil {
			o.log.Warn("journal_write_failed", fields, err)
		}
	}

	return Outcome{
		Kind:    c.Kind,
		Seq:     c.Seq,
		Applied: applied,
		Err:     c.Err,
		Session: o.store.Snapshot(),
	}
}

// Import runs a complete import round-trip in the caller's goroutine.
func (o *Orchestrator) Import(ctx context.Context, repoURL string) (Outcome, error) {
	req, err := o.RequestImport(repoURL)
	if err != nil {
		return Outcome{}, err
	}
	out := o.Apply(ctx, req.Run(ctx))
	return out, out.Err
}

// Analyze runs a complete analysis round-trip in the caller's goroutine.
func (o *Orchestrator) Analyze(ctx context.Context) (Outcome, error) {
	req, err := o.RequestAnalysis()
	if err != nil {
		return Outcome{}, err
	}
	out := o.Apply(ctx, req.Run(ctx))
	return out, out.Err
}
