package main

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/mozaika228/codebaseagent/internal/conversation"
	"github.com/mozaika228/codebaseagent/internal/ingest"
	"github.com/mozaika228/codebaseagent/internal/logging"
	"github.com/mozaika228/codebaseagent/internal/metrics"
	"github.com/mozaika228/codebaseagent/internal/tui"
)

// runConsole starts the interactive console. Logs go to a file while the
// console owns the terminal.
func runConsole(ctx context.Context, metricsAddr string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return errNoTerminal
	}

	paths, err := ensureHome()
	if err != nil {
		return err
	}
	logFile, err := os.OpenFile(paths.ConsoleLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logging.Configure(logFile, logging.Level(env.LogLevel), false)
	log = logging.New("cli")

	m := metrics.Global()
	if metricsAddr != "" {
		srv := metrics.NewServer(metricsAddr, m)
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Stop(stopCtx)
		}()
		log.Info("metrics_serving", map[string]interface{}{"addr": srv.Addr()})
	}

	style := "light"
	if lipgloss.HasDarkBackground() {
		style = "dark"
	}

	registry := ingest.NewRegistry(m)
	deps := tui.Deps{
		Orchestrator:  newOrchestrator(""),
		Client:        client,
		Conversation:  newConversation(registry),
		Registry:      registry,
		Metrics:       m,
		Summary:       conversation.SummaryFromEnv(env),
		APIBase:       env.APIBase,
		WorkDir:       getCwd(),
		MarkdownStyle: style,
	}

	log.Info("console_started", map[string]interface{}{"api_base": env.APIBase, "journal": runJournal != nil})
	return tui.Run(ctx, deps)
}
