// Package session tracks the repository import and analysis lifecycle.
//
// The Store holds the identifiers and status line of the current session.
// The Orchestrator is the only writer: it issues requests, and applies
// their completions back onto the Store, discarding stale ones.
package session

import (
	"fmt"
	"sync"
)

// Phase is the state machine position behind the status line.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseImporting       Phase = "importing"
	PhaseImported        Phase = "imported"
	PhaseAnalyzing       Phase = "analyzing"
	PhaseAnalysisStarted Phase = "analysis_started"
	PhaseFailed          Phase = "failed"
)

// Status labels shown to the operator.
const (
	StatusIdle      = "idle"
	StatusImporting = "importing"
	StatusAnalyzing = "analyzing"
)

// ImportedStatus is the status line after a successful import.
func ImportedStatus(repoID string) string {
	return "repo imported: " + repoID
}

// AnalysisStartedStatus is the status line after a successful analysis request.
func AnalysisStartedStatus(analysisID string) string {
	return "analysis started: " + analysisID
}

// FailedStatus is the status line after a failed request.
func FailedStatus(kind Kind, diagnostic string) string {
	return fmt.Sprintf("failed: %s: %s", kind, diagnostic)
}

// Session is a copy of the current lifecycle record.
// AnalysisID is non-empty only when RepoID is non-empty.
type Session struct {
	RepoURL    string
	RepoID     string
	AnalysisID string
	Status     string
	Phase      Phase

	// LastErr is the error behind a failed status, nil otherwise.
	LastErr error
}

// InFlight reports whether a request is outstanding.
func (s Session) InFlight() bool {
	return s.Phase == PhaseImporting || s.Phase == PhaseAnalyzing
}

// Store holds the session and request sequence bookkeeping.
type Store struct {
	mu      sync.RWMutex
	current Session

	seq          uint64 // last sequence number issued
	lastImport   uint64 // sequence of the newest import issued
	lastAnalysis uint64 // sequence of the newest analysis issued
}

// NewStore creates a store in the idle state.
func NewStore(repoURL string) *Store {
	return &Store{
		current: Session{
			RepoURL: repoURL,
			Status:  StatusIdle,
			Phase:   PhaseIdle,
		},
	}
}

// Snapshot returns a copy of the session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) beginImport(repoURL string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.lastImport = s.seq
	s.current.RepoURL = repoURL
	s.current.Status = StatusImporting
	s.current.Phase = PhaseImporting
	s.current.LastErr = nil
	return s.seq
}

// beginAnalysis returns the sequence and the repo ID the request is keyed by.
// ok is false when no import has completed yet.
func (s *Store) beginAnalysis() (seq uint64, repoID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.RepoID == "" {
		return 0, "", false
	}
	s.seq++
	s.lastAnalysis = s.seq
	s.current.Status = StatusAnalyzing
	s.current.Phase = PhaseAnalyzing
	s.current.LastErr = nil
	return s.seq, s.current.RepoID, true
}

// apply writes c onto the session if it is the newest request of its kind
// and, for analyses, newer than the last import and still keyed by the
// session's repo ID. Check and write
// happen under one lock. Returns false for stale completions.
func (s *Store) apply(c Completion, diagnostic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch c.Kind {
	case KindImport:
		if c.Seq != s.lastImport {
			return false
		}
	case KindAnalysis:
		// An import issued after the analysis supersedes it, even before
		// that import completes.
		if c.Seq != s.lastAnalysis || c.Seq < s.lastImport || c.Target != s.current.RepoID {
			return false
		}
	default:
		return false
	}

	if c.Err != nil {
		s.current.Status = FailedStatus(c.Kind, diagnostic)
		s.current.Phase = PhaseFailed
		s.current.LastErr = c.Err
		return true
	}

	switch c.Kind {
	case KindImport:
		s.current.RepoID = c.Identifier
		// A new repository invalidates any earlier analysis.
		s.current.AnalysisID = ""
		s.current.Status = ImportedStatus(c.Identifier)
		s.current.Phase = PhaseImported
	case KindAnalysis:
		s.current.AnalysisID = c.Identifier
		s.current.Status = AnalysisStartedStatus(c.Identifier)
		s.current.Phase = PhaseAnalysisStarted
	}
	s.current.LastErr = nil
	return true
}
