package main

import (
	"errors"
	"os"

	"github.com/mozaika228/codebaseagent/internal/config"
	"github.com/mozaika228/codebaseagent/internal/conversation"
	"github.com/mozaika228/codebaseagent/internal/ingest"
	"github.com/mozaika228/codebaseagent/internal/metrics"
	"github.com/mozaika228/codebaseagent/internal/session"
)

// errNoTerminal is returned when the console is started without a terminal.
var errNoTerminal = errors.New("the console needs a terminal; run 'cbactl --help' for one-shot commands")

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if errors.Is(err, errNoTerminal) {
		return 2
	}
	return 1
}

// newOrchestrator builds a session orchestrator from the loaded environment,
// journaling completions when the journal is open.
func newOrchestrator(branch string) *session.Orchestrator {
	if branch == "" {
		branch = env.Branch
	}
	opts := []session.Option{session.WithMetrics(metrics.Global())}
	if runJournal != nil {
		opts = append(opts, session.WithRecorder(runJournal))
	}
	return session.NewOrchestrator(client, session.Config{
		RepoURL:   env.RepoURL,
		Branch:    branch,
		CommitRef: env.CommitRef,
	}, opts...)
}

// newConversation builds a log answered by the offline template answerer.
func newConversation(registry *ingest.Registry) *conversation.Log {
	summary := conversation.SummaryFromEnv(env)
	return conversation.NewLog(conversation.TemplateAnswerer{},
		conversation.WithContext(func() conversation.AnswerContext {
			return conversation.AnswerContext{
				Summary:   summary,
				Documents: conversation.Documents(registry),
			}
		}),
	)
}

// getCwd returns current working directory or ".".
func getCwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// ensureHome creates ~/.codebase-agent.
func ensureHome() (*config.Paths, error) {
	paths := config.GetPaths()
	return paths, config.EnsureDir(paths.Home)
}
