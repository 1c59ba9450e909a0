package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/mozaika228/codebaseagent/internal/api"
	"github.com/mozaika228/codebaseagent/internal/conversation"
	"github.com/mozaika228/codebaseagent/internal/ingest"
	"github.com/mozaika228/codebaseagent/internal/journal"
	"github.com/mozaika228/codebaseagent/internal/session"
)

func init() {
	color.NoColor = true
}

func TestSessionPlain(t *testing.T) {
	r := New(false)
	got := r.Session(session.Session{RepoURL: "https://github.com/org/repo", RepoID: "r1", Status: "repo imported: r1"})

	want := "status=\"repo imported: r1\" repo_url=https://github.com/org/repo repo_id=r1 analysis_id=-\n"
	if got != want {
		t.Errorf("Session() = %q, want %q", got, want)
	}
}

func TestSessionPretty(t *testing.T) {
	r := New(true)
	got := r.Session(session.Session{RepoURL: "u", Status: "idle", Phase: session.PhaseIdle})

	for _, want := range []string{"Repository Runner", "Status:      idle", "Repo ID:     -", "Analysis ID: -"} {
		if !strings.Contains(got, want) {
			t.Errorf("Session() missing %q in:\n%s", want, got)
		}
	}
}

func TestTurns(t *testing.T) {
	r := New(false)
	got := r.Turns([]conversation.Turn{
		{Role: conversation.RoleAssistant, Text: "hello"},
		{Role: conversation.RoleUser, Text: "hi"},
	})

	if got != "assistant: hello\nuser: hi\n" {
		t.Errorf("Turns() = %q", got)
	}
}

func TestDocuments(t *testing.T) {
	if got := New(true).Documents(nil); got != "No documents ingested\n" {
		t.Errorf("Documents(nil) = %q", got)
	}

	records := []ingest.Record{{Name: "a.md", Size: 1000}, {Name: "b.pdf", Size: 2000}}
	if got := New(false).Documents(records); got != "a.md\t1000\nb.pdf\t2000\n" {
		t.Errorf("Documents() plain = %q", got)
	}
	if got := New(true).Documents(records); !strings.Contains(got, "Documents (2, 3.0 kB)") {
		t.Errorf("Documents() pretty = %q", got)
	}
}

func TestReport(t *testing.T) {
	rep := api.AnalysisReport{
		Status:   "completed",
		Summary:  "Scanned 3 code files",
		Hotspots: []api.Hotspot{{File: "service.py", Reason: "complexity"}},
	}

	plain := New(false).Report("a1", rep)
	if !strings.Contains(plain, "analysis_id=a1 status=completed graph=-") || !strings.Contains(plain, "hotspot\tservice.py\tcomplexity") {
		t.Errorf("Report() plain = %q", plain)
	}

	pretty := New(true).Report("a1", rep)
	for _, want := range []string{"Analysis a1", "Hotspots", "service.py", "└─ complexity"} {
		if !strings.Contains(pretty, want) {
			t.Errorf("Report() missing %q", want)
		}
	}
}

func TestHealth(t *testing.T) {
	r := New(false)
	ok := r.Health("http://localhost:8000", api.HealthResult{Status: "ok"}, nil, 12*time.Millisecond)
	if ok != "api=http://localhost:8000 healthy=true status=ok took=12ms\n" {
		t.Errorf("Health() ok = %q", ok)
	}

	bad := r.Health("http://localhost:8000", api.HealthResult{}, &api.TransportError{Op: "health", Err: errors.New("refused")}, 0)
	if !strings.Contains(bad, `healthy=false error="service unreachable: refused"`) {
		t.Errorf("Health() failure = %q", bad)
	}
}

func TestRefactorFlow(t *testing.T) {
	plain := New(false)
	p := api.RefactorProposal{ProposalID: "p_1", Title: "Extract validation layer", Risk: "low", Files: []string{"service.py"}}

	if got := plain.Proposal(p); got != "proposal_id=p_1 risk=low title=\"Extract validation layer\"\nfile\tservice.py\n" {
		t.Errorf("Proposal() plain = %q", got)
	}
	if got := New(true).Proposal(p); !strings.Contains(got, "Risk: ○ low") || !strings.Contains(got, "└─ service.py") {
		t.Errorf("Proposal() pretty = %q", got)
	}

	run := api.RefactorRun{RunID: "run_1", Status: "completed"}
	if got := plain.Run(run, "codebase-agent/p_1"); got != "run_id=run_1 status=completed head_branch=codebase-agent/p_1\n" {
		t.Errorf("Run() plain = %q", got)
	}

	pr := api.PullRequestResult{PRURL: "/artifacts/pr-drafts/run_1.md", Status: "skipped"}
	if got := plain.PullRequest(pr); got != "pr_url=/artifacts/pr-drafts/run_1.md status=skipped\n" {
		t.Errorf("PullRequest() plain = %q", got)
	}
	if got := New(true).PullRequest(pr); !strings.Contains(got, "draft written to /artifacts/pr-drafts/run_1.md") {
		t.Errorf("PullRequest() pretty = %q", got)
	}
}

func TestJournalEntries(t *testing.T) {
	var buf bytes.Buffer
	j := NewJournal(NewWriter(&buf))

	j.Entries(nil)
	if buf.String() != "No attempts recorded\n" {
		t.Errorf("Entries(nil) = %q", buf.String())
	}

	buf.Reset()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	j.Entries([]journal.Entry{
		{Kind: "import", Seq: 2, Target: "https://x/y", Outcome: journal.OutcomeSucceeded, Identifier: "r1", RecordedAt: at},
		{Kind: "import", Seq: 1, Target: "https://x/z", Outcome: journal.OutcomeStale, RecordedAt: at},
		{Kind: "analysis", Seq: 3, Target: "r1", Outcome: journal.OutcomeFailed, Detail: "HTTP 500\ntraceback follows", RecordedAt: at},
	})

	out := buf.String()
	for _, want := range []string{
		"REQUEST JOURNAL (3 ATTEMPTS)",
		"✓ [2026-01-02 03:04:05] import   #2 https://x/y (0ms)",
		"└─ r1",
		"└─ superseded by a newer import",
		"✗ [2026-01-02 03:04:05] analysis #3 r1 (0ms)",
		"└─ HTTP 500",
		"OUTCOMES:",
		"↷ stale     1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Entries() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "traceback") {
		t.Errorf("Entries() printed past the first detail line:\n%s", out)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{95 * time.Second, "1m35s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestIcons(t *testing.T) {
	if OutcomeIcon("stale") != "↷" || RiskIcon("high") != "●" || BoolIcon(false) != "✗" {
		t.Error("unexpected icon mapping")
	}
}
