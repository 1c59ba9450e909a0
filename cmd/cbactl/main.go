// Package main provides the cbactl entrypoint: the operator console for the
// codebase analysis service, plus one-shot subcommands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mozaika228/codebaseagent/internal/api"
	"github.com/mozaika228/codebaseagent/internal/config"
	"github.com/mozaika228/codebaseagent/internal/journal"
	"github.com/mozaika228/codebaseagent/internal/logging"
	"github.com/mozaika228/codebaseagent/internal/render"
)

var (
	version = "0.1.0"
	pretty  = true

	env        *config.CBAEnv
	client     *api.Client
	runJournal *journal.Journal
	renderer   *render.Renderer
	log        = logging.New("cli")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, rootCmd()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}

func rootCmd() *cobra.Command {
	var (
		apiBase     string
		metricsAddr string
		useJournal  bool
	)

	root := &cobra.Command{
		Use:   "cbactl",
		Short: "Operator console for the codebase analysis service",
		Long: `cbactl: import a repository, start an analysis, chat about the result.

Usage modes:
  cbactl              Start the interactive console (needs a terminal)
  cbactl <command>    Run a single operation (see below)

Configuration is read from CBA_* variables, ./.env and ~/.codebase-agent/.env.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotEnv()
			env = config.Env()
			if apiBase != "" {
				env.APIBase = apiBase
			}
			if useJournal {
				env.Journal = true
			}
			if err := env.Validate(); err != nil {
				return err
			}

			logging.Configure(os.Stderr, logging.Level(env.LogLevel), pretty)
			log = logging.New("cli")
			renderer = render.New(pretty)
			client = api.NewClient(env.APIBase)

			if env.Journal {
				j, err := openJournal()
				if err != nil {
					log.Warn("journal_unavailable", map[string]interface{}{"path": config.GetPaths().Journal}, err)
				} else {
					runJournal = j
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd.Context(), metricsAddr)
		},
	}

	root.PersistentFlags().BoolVar(&pretty, "pretty", true, "Pretty print output")
	root.PersistentFlags().StringVar(&apiBase, "api-base", "", "Analysis service address (overrides CBA_API_BASE)")
	root.PersistentFlags().BoolVar(&useJournal, "journal", false, "Record requests in the local journal")
	root.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve console metrics on this address (e.g. :9464)")

	root.AddGroup(
		&cobra.Group{ID: "repo", Title: "Repository:"},
		&cobra.Group{ID: "local", Title: "Local:"},
	)

	for _, c := range []*cobra.Command{importCmd(), analyzeCmd(), reportCmd(), refactorCmd(), prCmd(), healthCmd()} {
		c.GroupID = "repo"
		root.AddCommand(c)
	}
	for _, c := range []*cobra.Command{askCmd(), docsCmd(), compareCmd(), journalCmd()} {
		c.GroupID = "local"
		root.AddCommand(c)
	}
	root.AddCommand(versionCmd())

	return root
}

// execute runs root and releases the journal however the command ended.
// cobra skips post-run hooks when RunE fails.
func execute(ctx context.Context, root *cobra.Command) error {
	defer closeJournal()
	return root.ExecuteContext(ctx)
}

func closeJournal() {
	if runJournal == nil {
		return
	}
	if err := runJournal.Close(); err != nil {
		log.Warn("journal_close_failed", nil, err)
	}
	runJournal = nil
}

func openJournal() (*journal.Journal, error) {
	paths, err := ensureHome()
	if err != nil {
		return nil, err
	}
	return journal.Open(paths.Journal)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cbactl %s\n", version)
		},
	}
}
