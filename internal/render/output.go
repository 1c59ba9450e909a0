package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/mozaika228/codebaseagent/internal/api"
	"github.com/mozaika228/codebaseagent/internal/conversation"
	"github.com/mozaika228/codebaseagent/internal/ingest"
	"github.com/mozaika228/codebaseagent/internal/session"
	cbastrings "github.com/mozaika228/codebaseagent/internal/strings"
)

// Renderer handles output formatting.
type Renderer struct {
	pretty bool
}

// New creates a new renderer. Non-pretty output is key=value lines.
func New(pretty bool) *Renderer {
	return &Renderer{pretty: pretty}
}

// Session formats the runner state.
func (r *Renderer) Session(s session.Session) string {
	var sb strings.Builder

	if !r.pretty {
		fmt.Fprintf(&sb, "status=%q repo_url=%s repo_id=%s analysis_id=%s\n",
			s.Status, s.RepoURL, cbastrings.OrDash(s.RepoID), cbastrings.OrDash(s.AnalysisID))
		return sb.String()
	}

	sb.WriteString(color.CyanString("Repository Runner\n"))
	sb.WriteString(strings.Repeat("─", 40) + "\n")
	fmt.Fprintf(&sb, "  Status:      %s\n", r.status(s))
	fmt.Fprintf(&sb, "  Repo URL:    %s\n", s.RepoURL)
	fmt.Fprintf(&sb, "  Repo ID:     %s\n", cbastrings.OrDash(s.RepoID))
	fmt.Fprintf(&sb, "  Analysis ID: %s\n", cbastrings.OrDash(s.AnalysisID))
	return sb.String()
}

func (r *Renderer) status(s session.Session) string {
	switch s.Phase {
	case session.PhaseFailed:
		return color.RedString(s.Status)
	case session.PhaseImported, session.PhaseAnalysisStarted:
		return color.GreenString(s.Status)
	case session.PhaseImporting, session.PhaseAnalyzing:
		return color.YellowString(s.Status)
	default:
		return s.Status
	}
}

// Turns formats a conversation.
func (r *Renderer) Turns(turns []conversation.Turn) string {
	var sb strings.Builder
	for _, t := range turns {
		if !r.pretty {
			fmt.Fprintf(&sb, "%s: %s\n", t.Role, t.Text)
			continue
		}
		switch t.Role {
		case conversation.RoleUser:
			fmt.Fprintf(&sb, "%s %s\n", color.HiBlackString("you:"), t.Text)
		default:
			fmt.Fprintf(&sb, "%s %s\n", color.CyanString("assistant:"), t.Text)
		}
	}
	return sb.String()
}

// Documents formats the ingestion registry.
func (r *Renderer) Documents(records []ingest.Record) string {
	if len(records) == 0 {
		return "No documents ingested\n"
	}

	var sb strings.Builder
	var total int64
	for _, rec := range records {
		total += rec.Size
	}

	if r.pretty {
		sb.WriteString(color.CyanString("Documents (%d, %s)\n", len(records), humanize.Bytes(uint64(total))))
		sb.WriteString(strings.Repeat("─", 40) + "\n")
	}
	for _, rec := range records {
		if r.pretty {
			fmt.Fprintf(&sb, "  %-32s %s\n", cbastrings.TruncateRunes(rec.Name, 32), color.HiBlackString(humanize.Bytes(uint64(rec.Size))))
		} else {
			fmt.Fprintf(&sb, "%s\t%d\n", rec.Name, rec.Size)
		}
	}
	return sb.String()
}

// Report formats an analysis report.
func (r *Renderer) Report(id string, rep api.AnalysisReport) string {
	var sb strings.Builder

	if !r.pretty {
		fmt.Fprintf(&sb, "analysis_id=%s status=%s graph=%s\n", id, rep.Status, cbastrings.OrDash(rep.ModuleGraphURL))
		fmt.Fprintf(&sb, "summary=%q\n", rep.Summary)
		for _, h := range rep.Hotspots {
			fmt.Fprintf(&sb, "hotspot\t%s\t%s\n", h.File, h.Reason)
		}
		return sb.String()
	}

	sb.WriteString(color.CyanString("Analysis %s\n", id))
	sb.WriteString(strings.Repeat("─", 60) + "\n")
	fmt.Fprintf(&sb, "  Status:  %s\n", rep.Status)
	fmt.Fprintf(&sb, "  Summary: %s\n", cbastrings.OrDash(rep.Summary))
	if rep.ModuleGraphURL != "" {
		fmt.Fprintf(&sb, "  Graph:   %s\n", rep.ModuleGraphURL)
	}
	if len(rep.Hotspots) == 0 {
		return sb.String()
	}
	sb.WriteString("\n" + color.YellowString("Hotspots") + "\n")
	for _, h := range rep.Hotspots {
		fmt.Fprintf(&sb, "  %s %s\n", color.RedString("●"), h.File)
		fmt.Fprintf(&sb, "    └─ %s\n", color.HiBlackString(h.Reason))
	}
	return sb.String()
}

// Proposal formats a refactor proposal.
func (r *Renderer) Proposal(p api.RefactorProposal) string {
	var sb strings.Builder

	if !r.pretty {
		fmt.Fprintf(&sb, "proposal_id=%s risk=%s title=%q\n", p.ProposalID, p.Risk, p.Title)
		for _, f := range p.Files {
			fmt.Fprintf(&sb, "file\t%s\n", f)
		}
		return sb.String()
	}

	sb.WriteString(color.CyanString("Proposal %s\n", p.ProposalID))
	fmt.Fprintf(&sb, "  %s\n", p.Title)
	fmt.Fprintf(&sb, "  Risk: %s %s\n", RiskIcon(p.Risk), p.Risk)
	for _, f := range p.Files {
		fmt.Fprintf(&sb, "    └─ %s\n", f)
	}
	return sb.String()
}

// Run formats the result of applying a proposal.
func (r *Renderer) Run(run api.RefactorRun, headBranch string) string {
	if !r.pretty {
		return fmt.Sprintf("run_id=%s status=%s head_branch=%s\n", run.RunID, run.Status, headBranch)
	}
	return fmt.Sprintf("%s run %s %s on %s\n", BoolIcon(run.Status == "completed"), run.RunID, run.Status, color.HiBlackString(headBranch))
}

// PullRequest formats a pull request (or local draft) result.
func (r *Renderer) PullRequest(pr api.PullRequestResult) string {
	if !r.pretty {
		return fmt.Sprintf("pr_url=%s status=%s\n", pr.PRURL, pr.Status)
	}
	if pr.Status == "skipped" {
		return fmt.Sprintf("%s draft written to %s %s\n", color.YellowString("•"), pr.PRURL, color.HiBlackString("(no GitHub App configured)"))
	}
	return fmt.Sprintf("%s %s %s\n", color.GreenString("✓"), pr.PRURL, pr.Status)
}

// Health formats a health check result.
func (r *Renderer) Health(base string, res api.HealthResult, err error, took time.Duration) string {
	if !r.pretty {
		if err != nil {
			return fmt.Sprintf("api=%s healthy=false error=%q\n", base, api.Diagnostic(err))
		}
		return fmt.Sprintf("api=%s healthy=true status=%s took=%s\n", base, res.Status, FormatDuration(took))
	}
	if err != nil {
		return fmt.Sprintf("%s %s %s\n", color.RedString("✗"), base, api.Diagnostic(err))
	}
	return fmt.Sprintf("%s %s %s %s\n", color.GreenString("✓"), base, res.Status, color.HiBlackString(FormatDuration(took)))
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
