package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mozaika228/codebaseagent/internal/api"
	"github.com/mozaika228/codebaseagent/internal/compare"
	"github.com/mozaika228/codebaseagent/internal/ingest"
	"github.com/mozaika228/codebaseagent/internal/journal"
	"github.com/mozaika228/codebaseagent/internal/metrics"
	"github.com/mozaika228/codebaseagent/internal/render"
	"github.com/mozaika228/codebaseagent/internal/session"
	"github.com/mozaika228/codebaseagent/internal/store"
)

// CommandFunc defines the function signature for command execution.
type CommandFunc func(cmd *cobra.Command, args []string) error

// CommandConfig holds configuration for creating standardized commands.
type CommandConfig struct {
	Use     string
	Short   string
	Long    string
	Args    cobra.PositionalArgs
	Action  string
	Example string
	RunFunc CommandFunc
}

// newCommand creates a command that logs its outcome and duration.
func newCommand(cfg CommandConfig) *cobra.Command {
	return &cobra.Command{
		Use:     cfg.Use,
		Short:   cfg.Short,
		Long:    cfg.Long,
		Args:    cfg.Args,
		Example: cfg.Example,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			err := cfg.RunFunc(cmd, args)
			fields := map[string]interface{}{"action": cfg.Action}
			if err != nil {
				log.Warn("command_failed", fields, err)
				return err
			}
			log.TimedEvent("command_completed", start, fields)
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	var (
		branch  string
		analyze bool
	)

	cmd := newCommand(CommandConfig{
		Use:     "import <repo-url>",
		Short:   "Import a repository, optionally starting an analysis",
		Args:    cobra.ExactArgs(1),
		Action:  "import",
		Example: "  cbactl import https://github.com/org/repo --analyze",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			orch := newOrchestrator(branch)
			ctx := cmd.Context()

			_, err := orch.Import(ctx, args[0])
			if err == nil && analyze {
				_, err = orch.Analyze(ctx)
			}

			fmt.Fprint(cmd.OutOrStdout(), renderer.Session(orch.Snapshot()))
			if err != nil {
				return errors.New(orch.Snapshot().Status)
			}
			return nil
		},
	})
	cmd.Flags().StringVar(&branch, "branch", "", "Branch to import (default CBA_BRANCH)")
	cmd.Flags().BoolVar(&analyze, "analyze", false, "Start an analysis after a successful import")
	return cmd
}

func analyzeCmd() *cobra.Command {
	var commit string

	cmd := newCommand(CommandConfig{
		Use:    "analyze <repo-id>",
		Short:  "Start an analysis of an already imported repository",
		Args:   cobra.ExactArgs(1),
		Action: "analyze",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			if commit == "" {
				commit = env.CommitRef
			}
			start := time.Now()
			res, err := client.RunAnalysis(cmd.Context(), args[0], commit)
			took := time.Since(start)
			metrics.Global().RecordAnalysis(err == nil, took)
			recordAttempt(cmd.Context(), journal.Entry{
				Kind:       string(session.KindAnalysis),
				Seq:        1,
				Target:     args[0],
				Identifier: res.AnalysisID,
				Detail:     api.Diagnostic(err),
				Duration:   took,
			}, err)
			if err != nil {
				return errors.New(session.FailedStatus(session.KindAnalysis, api.Diagnostic(err)))
			}
			fmt.Fprintln(cmd.OutOrStdout(), session.AnalysisStartedStatus(res.AnalysisID))
			return nil
		},
	})
	cmd.Flags().StringVar(&commit, "commit", "", "Commit reference (default CBA_COMMIT_REF)")
	return cmd
}

// recordAttempt journals a request made outside a session. Seq is 1:
// a one-shot command issues a single request.
func recordAttempt(ctx context.Context, e journal.Entry, err error) {
	if runJournal == nil {
		return
	}
	e.Outcome = journal.OutcomeSucceeded
	if err != nil {
		e.Outcome = journal.OutcomeFailed
	}
	if recErr := runJournal.Record(ctx, e); recErr != nil {
		log.Warn("journal_write_failed", map[string]interface{}{"kind": e.Kind}, recErr)
	}
}

func reportCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:    "report <analysis-id>",
		Short:  "Show the report of an analysis",
		Args:   cobra.ExactArgs(1),
		Action: "report",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			rep, err := client.GetAnalysis(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("report %s: %s", args[0], api.Diagnostic(err))
			}
			fmt.Fprint(cmd.OutOrStdout(), renderer.Report(args[0], rep))
			return nil
		},
	})
}

func healthCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:    "health",
		Short:  "Check that the analysis service answers",
		Args:   cobra.NoArgs,
		Action: "health",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			res, err := client.Health(cmd.Context())
			fmt.Fprint(cmd.OutOrStdout(), renderer.Health(client.BaseURL(), res, err, time.Since(start)))
			return err
		},
	})
}

func refactorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refactor",
		Short: "Propose and apply scoped refactors from an analysis",
	}
	cmd.AddCommand(proposeCmd(), applyCmd())
	return cmd
}

func proposeCmd() *cobra.Command {
	var (
		scope      []string
		maxChanges int
	)

	cmd := newCommand(CommandConfig{
		Use:     "propose <analysis-id>",
		Short:   "Ask for a refactor proposal over an analysis's hotspots",
		Args:    cobra.ExactArgs(1),
		Action:  "propose",
		Example: "  cbactl refactor propose a_1234 --scope 'src/**' --max-changes 3",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			p, err := client.ProposeRefactor(cmd.Context(), api.RefactorProposalRequest{
				AnalysisID: args[0],
				Scope:      scope,
				MaxChanges: maxChanges,
			})
			if err != nil {
				return fmt.Errorf("propose %s: %s", args[0], api.Diagnostic(err))
			}
			fmt.Fprint(cmd.OutOrStdout(), renderer.Proposal(p))
			return nil
		},
	})
	cmd.Flags().StringSliceVar(&scope, "scope", nil, "Limit the proposal to paths matching a glob (repeatable)")
	cmd.Flags().IntVar(&maxChanges, "max-changes", api.DefaultMaxChanges, "Maximum number of files to change")
	return cmd
}

func applyCmd() *cobra.Command {
	var runTests bool

	cmd := newCommand(CommandConfig{
		Use:    "apply <proposal-id>",
		Short:  "Commit a proposal to its head branch",
		Args:   cobra.ExactArgs(1),
		Action: "apply",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			run, err := client.ApplyRefactor(cmd.Context(), api.RefactorApplyRequest{
				ProposalID: args[0],
				RunTests:   runTests,
			})
			if err != nil {
				return fmt.Errorf("apply %s: %s", args[0], api.Diagnostic(err))
			}
			fmt.Fprint(cmd.OutOrStdout(), renderer.Run(run, api.HeadBranch(args[0])))
			return nil
		},
	})
	cmd.Flags().BoolVar(&runTests, "run-tests", true, "Gate the commit on the repository's tests")
	return cmd
}

func prCmd() *cobra.Command {
	var (
		repoID     string
		proposalID string
		headBranch string
		base       string
		title      string
		body       string
	)

	cmd := newCommand(CommandConfig{
		Use:     "pr <run-id>",
		Short:   "Open a pull request (or a local draft) for a completed run",
		Args:    cobra.ExactArgs(1),
		Action:  "pr",
		Example: "  cbactl pr run_1234 --repo-id r_1234 --proposal p_1234",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			if headBranch == "" {
				if proposalID == "" {
					return errors.New("one of --proposal or --head-branch is required")
				}
				headBranch = api.HeadBranch(proposalID)
			}
			if base == "" {
				base = env.Branch
			}
			res, err := client.CreatePullRequest(cmd.Context(), api.PullRequestRequest{
				RunID:      args[0],
				RepoID:     repoID,
				Base:       base,
				HeadBranch: headBranch,
				Title:      title,
				Body:       body,
			})
			if err != nil {
				return fmt.Errorf("pr %s: %s", args[0], api.Diagnostic(err))
			}
			fmt.Fprint(cmd.OutOrStdout(), renderer.PullRequest(res))
			return nil
		},
	})
	cmd.Flags().StringVar(&repoID, "repo-id", "", "Repository the run belongs to")
	cmd.Flags().StringVar(&proposalID, "proposal", "", "Proposal the run applied; derives the head branch")
	cmd.Flags().StringVar(&headBranch, "head-branch", "", "Head branch (overrides --proposal)")
	cmd.Flags().StringVar(&base, "base", "", "Base branch (default CBA_BRANCH)")
	cmd.Flags().StringVar(&title, "title", api.DefaultPRTitle, "Pull request title")
	cmd.Flags().StringVar(&body, "body", "", "Pull request body")
	cmd.MarkFlagRequired("repo-id")
	return cmd
}

func askCmd() *cobra.Command {
	var docs []string

	cmd := newCommand(CommandConfig{
		Use:     "ask <question...>",
		Short:   "Ask the offline assistant one question",
		Args:    cobra.MinimumNArgs(1),
		Action:  "ask",
		Example: "  cbactl ask where is the risk --doc 'docs/**/*.md'",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			registry := ingest.NewRegistry(nil)
			if len(docs) > 0 {
				if err := ingestGlobs(registry, docs); err != nil {
					return err
				}
			}

			conv := newConversation(registry)
			if !conv.Send(cmd.Context(), strings.Join(args, " ")) {
				return errors.New("question is empty")
			}
			turns := conv.Turns()
			fmt.Fprint(cmd.OutOrStdout(), renderer.Turns(turns[len(turns)-2:]))
			return nil
		},
	})
	cmd.Flags().StringSliceVar(&docs, "doc", nil, "Attach documents matching a glob (repeatable)")
	return cmd
}

func docsCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:     "docs <glob...>",
		Short:   "Expand globs and list the documents that would be attached",
		Args:    cobra.MinimumNArgs(1),
		Action:  "docs",
		Example: "  cbactl docs 'docs/**/*.md' README.md",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			registry := ingest.NewRegistry(nil)
			if err := ingestGlobs(registry, args); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderer.Documents(registry.Records()))
			return nil
		},
	})
}

func ingestGlobs(registry *ingest.Registry, patterns []string) error {
	paths, err := ingest.Expand(getCwd(), patterns)
	if err != nil {
		return err
	}
	files, err := ingest.StatFiles(paths)
	if err != nil {
		return err
	}
	registry.Ingest(files)
	return nil
}

func compareCmd() *cobra.Command {
	return newCommand(CommandConfig{
		Use:    "compare",
		Short:  "Show the local vs cloud model comparison",
		Args:   cobra.NoArgs,
		Action: "compare",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), compare.Render(0))
			return nil
		},
	})
}

func journalCmd() *cobra.Command {
	var (
		limit   int
		kind    string
		outcome string
	)

	cmd := newCommand(CommandConfig{
		Use:    "journal",
		Short:  "List recorded import and analysis attempts",
		Args:   cobra.NoArgs,
		Action: "journal",
		RunFunc: func(cmd *cobra.Command, args []string) error {
			j := runJournal
			if j == nil {
				opened, err := openJournal()
				if err != nil {
					return err
				}
				defer opened.Close()
				j = opened
			}

			filter := store.DefaultFilter().
				WithLimit(limit).
				WithWhere("kind", kind).
				WithWhere("outcome", outcome)
			entries, err := j.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			render.NewJournal(render.NewWriter(cmd.OutOrStdout())).Entries(entries)
			return nil
		},
	})
	cmd.Flags().IntVar(&limit, "limit", journal.DefaultLimit, "Number of attempts to show")
	cmd.Flags().StringVar(&kind, "kind", "", "Only show import or analysis attempts")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Only show succeeded, failed or stale attempts")
	return cmd
}
