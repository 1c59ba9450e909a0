package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozaika228/codebaseagent/internal/logging"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	logging.Discard()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/")
}

func TestImportRepository(t *testing.T) {
	var got ImportRequest
	var headers http.Header

	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/import", r.URL.Path)
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"repo_id":"r1","status":"ok","commit_sha":"abc123"}`))
	})

	res, err := client.ImportRepository(context.Background(), "https://example.com/org/repo", "main")
	require.NoError(t, err)

	assert.Equal(t, "r1", res.RepoID)
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, "abc123", res.CommitSHA)
	assert.Equal(t, ImportRequest{RepoURL: "https://example.com/org/repo", Branch: "main"}, got)
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.NotEmpty(t, headers.Get(logging.RequestIDHeader))
}

func TestImportRequestWireShape(t *testing.T) {
	data, err := json.Marshal(ImportRequest{RepoURL: "u", Branch: "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"repo_url":"u","branch":"b"}`, string(data))

	data, err = json.Marshal(AnalysisRequest{RepoID: "r1", CommitSHA: "HEAD"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"repo_id":"r1","commit_sha":"HEAD"}`, string(data))
}

func TestRunAnalysis(t *testing.T) {
	var got AnalysisRequest

	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analysis/run", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"analysis_id":"a1","status":"ok"}`))
	})

	res, err := client.RunAnalysis(context.Background(), "r1", "HEAD")
	require.NoError(t, err)

	assert.Equal(t, AnalysisResult{AnalysisID: "a1", Status: "ok"}, res)
	assert.Equal(t, AnalysisRequest{RepoID: "r1", CommitSHA: "HEAD"}, got)
}

func TestRequestIDPropagated(t *testing.T) {
	var seen string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(logging.RequestIDHeader)
		w.Write([]byte(`{"analysis_id":"a1","status":"ok"}`))
	})

	ctx := logging.WithRequestID(context.Background(), "req-42")
	_, err := client.RunAnalysis(ctx, "r1", "HEAD")
	require.NoError(t, err)
	assert.Equal(t, "req-42", seen)
}

func TestContractViolations(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"empty object", `{}`, "repo_id"},
		{"missing status", `{"repo_id":"r1"}`, "status"},
		{"blank id", `{"repo_id":"  ","status":"ok"}`, "repo_id"},
		{"array", `[]`, ""},
		{"null", `null`, ""},
		{"not json", `<html>oops</html>`, ""},
		{"wrong type", `{"repo_id":7,"status":"ok"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			res, err := client.ImportRepository(context.Background(), "https://example.com/org/repo", "main")
			require.Error(t, err)
			assert.Empty(t, res.RepoID)
			assert.True(t, errors.Is(err, ErrContract))

			var contractErr *ContractError
			require.True(t, errors.As(err, &contractErr))
			assert.Equal(t, tt.wantField, contractErr.Field)
		})
	}
}

func TestStatusErrorDetail(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
	}{
		{"fastapi detail", http.StatusNotFound, `{"detail":"repo_id not found"}`, "repo_id not found"},
		{"structured detail", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","repo_url"]}]}`, `[{"loc":["body","repo_url"]}]`},
		{"plain body", http.StatusBadGateway, "upstream down\n", "upstream down"},
		{"empty body", http.StatusInternalServerError, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.RunAnalysis(context.Background(), "r1", "HEAD")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrStatus))
			assert.False(t, errors.Is(err, ErrContract))

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.wantDetail, statusErr.Detail)
		})
	}
}

func TestTransportError(t *testing.T) {
	logging.Discard()
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client := NewClient(base)
	_, err := client.ImportRepository(context.Background(), "https://example.com/org/repo", "main")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "import", transportErr.Op)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func TestWithHTTPClient(t *testing.T) {
	logging.Discard()
	called := false
	client := NewClient("http://svc.test", WithHTTPClient(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		called = true
		assert.Equal(t, "http://svc.test/health", r.URL.String())
		return httptest.NewRecorder().Result(), nil
	})))

	_, err := client.Health(context.Background())
	assert.True(t, called)
	// The recorder returns 200 with an empty body: a contract violation.
	assert.True(t, errors.Is(err, ErrContract))
}

func TestGetAnalysis(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/analysis/a 1", r.URL.Path)
		w.Write([]byte(`{
			"status": "completed",
			"summary": "Scanned 3 code files",
			"hotspots": [{"file": "service.py", "reason": "high structural complexity score=4"}],
			"module_graph_url": "/artifacts/a_1/graph.json"
		}`))
	})

	report, err := client.GetAnalysis(context.Background(), "a 1")
	require.NoError(t, err)

	assert.Equal(t, "completed", report.Status)
	require.Len(t, report.Hotspots, 1)
	assert.Equal(t, "service.py", report.Hotspots[0].File)
	assert.Equal(t, "/artifacts/a_1/graph.json", report.ModuleGraphURL)
}

func TestHealth(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"status":"ok"}`))
	})

	res, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Status)
}

func TestDiagnostic(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"status with detail", &StatusError{Op: "import", StatusCode: 400, Detail: "clone failed"}, "HTTP 400: clone failed"},
		{"status bare", &StatusError{Op: "import", StatusCode: 503}, "HTTP 503"},
		{"missing field", &ContractError{Op: "import", Field: "repo_id"}, "invalid response: missing repo_id"},
		{"malformed", &ContractError{Op: "import", Err: errors.New("eof")}, "invalid response: eof"},
		{"no cause", &ContractError{Op: "import"}, "invalid response: not a JSON object"},
		{"transport", &TransportError{Op: "import", Err: errors.New("connection refused")}, "service unreachable: connection refused"},
		{"other", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diagnostic(tt.err))
		})
	}
}

func TestDiagnosticNamesDecodeFailure(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"repo_id":1,"status":"ok"}`))
	})

	_, err := client.ImportRepository(context.Background(), "https://example.com/org/repo", "main")
	require.ErrorIs(t, err, ErrContract)

	diag := Diagnostic(err)
	assert.NotEqual(t, "invalid response: not a JSON object", diag)
	assert.Contains(t, diag, "repo_id")
	assert.Contains(t, diag, "number")
}

func TestDiagnosticNonObjectBody(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["r1"]`))
	})

	_, err := client.ImportRepository(context.Background(), "https://example.com/org/repo", "main")
	assert.Equal(t, `invalid response: expected JSON object, got "[\"r1\"]"`, Diagnostic(err))
}

func TestProposeRefactor(t *testing.T) {
	var got RefactorProposalRequest
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/refactors/propose", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"proposal_id":"p_1","title":"Extract validation layer","risk":"low","files":["service.py"]}`))
	})

	res, err := client.ProposeRefactor(context.Background(), RefactorProposalRequest{AnalysisID: "a1"})
	require.NoError(t, err)

	assert.Equal(t, RefactorProposalRequest{AnalysisID: "a1", Scope: []string{}, MaxChanges: DefaultMaxChanges}, got)
	assert.Equal(t, "p_1", res.ProposalID)
	assert.Equal(t, []string{"service.py"}, res.Files)
}

func TestProposeRefactorWireShape(t *testing.T) {
	var raw map[string]interface{}
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Write([]byte(`{"proposal_id":"p_1","title":"t","risk":"low","files":[]}`))
	})

	_, err := client.ProposeRefactor(context.Background(), RefactorProposalRequest{AnalysisID: "a1", Scope: []string{"src/**"}, MaxChanges: 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"analysis_id": "a1", "scope": []interface{}{"src/**"}, "max_changes": float64(2)}, raw)
}

func TestApplyRefactor(t *testing.T) {
	var got RefactorApplyRequest
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/refactors/apply", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"run_id":"run_1","status":"completed"}`))
	})

	res, err := client.ApplyRefactor(context.Background(), RefactorApplyRequest{ProposalID: "p_1", RunTests: true})
	require.NoError(t, err)
	assert.Equal(t, RefactorRun{RunID: "run_1", Status: "completed"}, res)
	assert.Equal(t, RefactorApplyRequest{ProposalID: "p_1", RunTests: true}, got)
}

func TestCreatePullRequest(t *testing.T) {
	var got PullRequestRequest
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/github/pr", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"pr_url":"/artifacts/pr-drafts/run_1.md","status":"skipped"}`))
	})

	req := PullRequestRequest{
		RunID: "run_1", RepoID: "r1", Base: "main",
		HeadBranch: HeadBranch("p_1"), Title: DefaultPRTitle, Body: "Generated",
	}
	res, err := client.CreatePullRequest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "skipped", res.Status)
	assert.Equal(t, "/artifacts/pr-drafts/run_1.md", res.PRURL)
	assert.Equal(t, req, got)
	assert.Equal(t, "codebase-agent/p_1", got.HeadBranch)
}

func TestRefactorFlowErrors(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/refactors/propose":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"analysis_id not found"}`))
		case "/refactors/apply":
			w.Write([]byte(`{"status":"completed"}`))
		case "/github/pr":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"detail":"head_branch must match run head_branch"}`))
		}
	})
	ctx := context.Background()

	_, err := client.ProposeRefactor(ctx, RefactorProposalRequest{AnalysisID: "nope"})
	assert.Equal(t, "HTTP 404: analysis_id not found", Diagnostic(err))

	_, err = client.ApplyRefactor(ctx, RefactorApplyRequest{ProposalID: "p_1"})
	assert.Equal(t, "invalid response: missing run_id", Diagnostic(err))

	_, err = client.CreatePullRequest(ctx, PullRequestRequest{RunID: "run_1"})
	assert.Equal(t, "HTTP 400: head_branch must match run head_branch", Diagnostic(err))
}
