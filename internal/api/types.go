package api

// ImportRequest is the body of POST /repos/import.
type ImportRequest struct {
	RepoURL string `json:"repo_url"`
	Branch  string `json:"branch"`
}

// ImportResult is the decoded response of POST /repos/import.
type ImportResult struct {
	RepoID string `json:"repo_id"`
	Status string `json:"status"`

	// CommitSHA is returned by newer backends; optional.
	CommitSHA string `json:"commit_sha,omitempty"`
}

// AnalysisRequest is the body of POST /analysis/run.
type AnalysisRequest struct {
	RepoID    string `json:"repo_id"`
	CommitSHA string `json:"commit_sha"`
}

// AnalysisResult is the decoded response of POST /analysis/run.
type AnalysisResult struct {
	AnalysisID string `json:"analysis_id"`
	Status     string `json:"status"`
}

// Hotspot is one file flagged by the analysis engine.
type Hotspot struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// AnalysisReport is the decoded response of GET /analysis/{id}.
type AnalysisReport struct {
	Status         string    `json:"status"`
	Summary        string    `json:"summary"`
	Hotspots       []Hotspot `json:"hotspots"`
	ModuleGraphURL string    `json:"module_graph_url"`
}

// HealthResult is the decoded response of GET /health.
type HealthResult struct {
	Status string `json:"status"`
}

// RefactorProposalRequest is the body of POST /refactors/propose.
type RefactorProposalRequest struct {
	AnalysisID string   `json:"analysis_id"`
	Scope      []string `json:"scope"`
	MaxChanges int      `json:"max_changes"`
}

// RefactorProposal is the decoded response of POST /refactors/propose.
type RefactorProposal struct {
	ProposalID string   `json:"proposal_id"`
	Title      string   `json:"title"`
	Risk       string   `json:"risk"`
	Files      []string `json:"files"`
}

// RefactorApplyRequest is the body of POST /refactors/apply.
type RefactorApplyRequest struct {
	ProposalID string `json:"proposal_id"`
	RunTests   bool   `json:"run_tests"`
}

// RefactorRun is the decoded response of POST /refactors/apply.
type RefactorRun struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// PullRequestRequest is the body of POST /github/pr.
type PullRequestRequest struct {
	RunID      string `json:"run_id"`
	RepoID     string `json:"repo_id"`
	Base       string `json:"base"`
	HeadBranch string `json:"head_branch"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}

// PullRequestResult is the decoded response of POST /github/pr.
// Status is "opened", or "skipped" when the service only wrote a local draft.
type PullRequestResult struct {
	PRURL  string `json:"pr_url"`
	Status string `json:"status"`
}

// Defaults the service applies to refactor flows.
const (
	DefaultMaxChanges = 5
	DefaultPRTitle    = "AI agent: refactor proposal"
	headBranchPrefix  = "codebase-agent/"
)

// HeadBranch is the branch the service commits an applied proposal to.
func HeadBranch(proposalID string) string {
	return headBranchPrefix + proposalID
}

type field struct {
	name  string
	value string
}

// required lists response fields that must be present and non-empty.
func (r ImportResult) required() []field {
	return []field{{"repo_id", r.RepoID}, {"status", r.Status}}
}

func (r AnalysisResult) required() []field {
	return []field{{"analysis_id", r.AnalysisID}, {"status", r.Status}}
}

func (r AnalysisReport) required() []field {
	return []field{{"status", r.Status}}
}

func (r HealthResult) required() []field {
	return []field{{"status", r.Status}}
}

func (r RefactorProposal) required() []field {
	return []field{{"proposal_id", r.ProposalID}, {"title", r.Title}, {"risk", r.Risk}}
}

func (r RefactorRun) required() []field {
	return []field{{"run_id", r.RunID}, {"status", r.Status}}
}

func (r PullRequestResult) required() []field {
	return []field{{"pr_url", r.PRURL}, {"status", r.Status}}
}
