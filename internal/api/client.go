// Package api is the client for the repository import and analysis service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mozaika228/codebaseagent/internal/logging"
	cbastrings "github.com/mozaika228/codebaseagent/internal/strings"
)

const (
	importPath   = "/repos/import"
	analysisPath = "/analysis/run"
	reportPath   = "/analysis/"
	healthPath   = "/health"
	proposePath  = "/refactors/propose"
	applyPath    = "/refactors/apply"
	prPath       = "/github/pr"

	maxBodyBytes  = 1 << 20
	maxDetailLen  = 160
	contentTypeJS = "application/json"
)

// HTTPClient interface for HTTP requests (enables testing)
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Verify http.Client implements HTTPClient
var _ HTTPClient = (*http.Client)(nil)

// Client talks to the analysis service. The base address is fixed at
// construction. No retries, caching or timeouts are applied here;
// callers bound calls through the context if they want to.
type Client struct {
	baseURL string
	http    HTTPClient
	log     *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport.
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger overrides the component logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		log:     logging.New("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the address requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ImportRepository asks the service to clone repoURL at branch.
func (c *Client) ImportRepository(ctx context.Context, repoURL, branch string) (ImportResult, error) {
	return post[ImportResult](ctx, c, "import", importPath, ImportRequest{RepoURL: repoURL, Branch: branch})
}

// RunAnalysis starts an analysis of repoID at commitRef.
func (c *Client) RunAnalysis(ctx context.Context, repoID, commitRef string) (AnalysisResult, error) {
	return post[AnalysisResult](ctx, c, "analysis", analysisPath, AnalysisRequest{RepoID: repoID, CommitSHA: commitRef})
}

// GetAnalysis fetches the report of a finished analysis.
func (c *Client) GetAnalysis(ctx context.Context, analysisID string) (AnalysisReport, error) {
	return get[AnalysisReport](ctx, c, "report", reportPath+url.PathEscape(analysisID))
}

// Health checks that the service answers.
func (c *Client) Health(ctx context.Context) (HealthResult, error) {
	return get[HealthResult](ctx, c, "health", healthPath)
}

// ProposeRefactor asks for a scoped refactor proposal over an analysis's hotspots.
func (c *Client) ProposeRefactor(ctx context.Context, req RefactorProposalRequest) (RefactorProposal, error) {
	if req.MaxChanges <= 0 {
		req.MaxChanges = DefaultMaxChanges
	}
	if req.Scope == nil {
		req.Scope = []string{}
	}
	return post[RefactorProposal](ctx, c, "propose", proposePath, req)
}

// ApplyRefactor commits a proposal to its head branch, optionally gated on tests.
func (c *Client) ApplyRefactor(ctx context.Context, req RefactorApplyRequest) (RefactorRun, error) {
	return post[RefactorRun](ctx, c, "apply", applyPath, req)
}

// CreatePullRequest opens a pull request for a completed run, or has the
// service write a local draft when no GitHub App is configured.
func (c *Client) CreatePullRequest(ctx context.Context, req PullRequestRequest) (PullRequestResult, error) {
	return post[PullRequestResult](ctx, c, "pr", prPath, req)
}

type contract interface {
	required() []field
}

func post[T contract](ctx context.Context, c *Client, op, path string, body interface{}) (T, error) {
	var zero T
	payload, err := json.Marshal(body)
	if err != nil {
		return zero, fmt.Errorf("%s: encode request: %w", op, err)
	}
	return do[T](ctx, c, op, http.MethodPost, path, payload)
}

func get[T contract](ctx context.Context, c *Client, op, path string) (T, error) {
	return do[T](ctx, c, op, http.MethodGet, path, nil)
}

func do[T contract](ctx context.Context, c *Client, op, method, path string, payload []byte) (T, error) {
	var zero T
	ctx, reqID := logging.EnsureRequestID(ctx)
	log := c.log.With("request_id", reqID)
	start := time.Now()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return zero, fmt.Errorf("%s: build request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", contentTypeJS)
	}
	req.Header.Set("Accept", contentTypeJS)
	req.Header.Set(logging.RequestIDHeader, reqID)

	log.Debug("request_sent", map[string]interface{}{"method": method, "path": path})

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("request_failed", map[string]interface{}{"path": path}, err)
		return zero, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return zero, &TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Op: op, StatusCode: resp.StatusCode, Detail: detail(body)}
		log.Warn("request_rejected", map[string]interface{}{"path": path, "status": resp.StatusCode}, statusErr)
		return zero, statusErr
	}

	result, err := decode[T](op, body)
	if err != nil {
		log.Warn("response_invalid", map[string]interface{}{"path": path}, err)
		return zero, err
	}

	log.TimedEvent("request_completed", start, map[string]interface{}{"path": path, "status": resp.StatusCode})
	return result, nil
}

// decode parses body into T and checks that every required field is present.
func decode[T contract](op string, body []byte) (T, error) {
	var out, zero T
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return zero, &ContractError{Op: op, Err: fmt.Errorf("expected JSON object, got %q", cbastrings.Truncate(string(trimmed), 40))}
	}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return zero, &ContractError{Op: op, Err: err}
	}
	for _, f := range out.required() {
		if strings.TrimSpace(f.value) == "" {
			return zero, &ContractError{Op: op, Field: f.name}
		}
	}
	return out, nil
}

// detail extracts a short explanation from an error response body.
func detail(body []byte) string {
	var shaped struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &shaped); err == nil && len(shaped.Detail) > 0 {
		var s string
		if err := json.Unmarshal(shaped.Detail, &s); err == nil {
			return cbastrings.Truncate(s, maxDetailLen)
		}
		return cbastrings.Truncate(string(shaped.Detail), maxDetailLen)
	}
	return cbastrings.Truncate(strings.TrimSpace(string(body)), maxDetailLen)
}
