package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mozaika228/codebaseagent/internal/api"
	"github.com/mozaika228/codebaseagent/internal/compare"
	"github.com/mozaika228/codebaseagent/internal/render"
)

const commandTimeout = 10 * time.Second

// SlashCommand is a console command typed into the chat input.
// Output goes to the result panel, never into the conversation.
type SlashCommand struct {
	Name        string
	Description string
	Handler     func(m *Model, args string) (string, tea.Cmd)
}

// builtinCommands returns all available slash commands
func builtinCommands() map[string]SlashCommand {
	return map[string]SlashCommand{
		"help": {
			Name:        "help",
			Description: "Show available commands",
			Handler:     cmdHelp,
		},
		"docs": {
			Name:        "docs",
			Description: "List attached documents",
			Handler:     cmdDocs,
		},
		"compare": {
			Name:        "compare",
			Description: "Show the local vs cloud comparison",
			Handler:     cmdCompare,
		},
		"report": {
			Name:        "report",
			Description: "Fetch the report of the current (or given) analysis",
			Handler:     cmdReport,
		},
		"propose": {
			Name:        "propose",
			Description: "Propose a refactor for the current (or given) analysis",
			Handler:     cmdPropose,
		},
		"health": {
			Name:        "health",
			Description: "Check the analysis service",
			Handler:     cmdHealth,
		},
		"summary": {
			Name:        "summary",
			Description: "Show the derived summary",
			Handler:     cmdSummary,
		},
	}
}

// isSlashCommand checks if input starts with /
func isSlashCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// executeSlashCommand parses and runs a slash command
func executeSlashCommand(m *Model, input string) (string, tea.Cmd) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", nil
	}

	parts := strings.SplitN(input[1:], " ", 2)
	name := strings.ToLower(parts[0])
	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}

	if cmd, ok := builtinCommands()[name]; ok {
		return cmd.Handler(m, args)
	}
	return fmt.Sprintf("Unknown command: /%s. Type /help for available commands.", name), nil
}

func cmdHelp(m *Model, args string) (string, tea.Cmd) {
	cmds := builtinCommands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Commands:\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "  /%-8s %s\n", name, cmds[name].Description)
	}
	sb.WriteString("\nShortcuts:\n")
	sb.WriteString("  tab     Next panel\n")
	sb.WriteString("  enter   Import / send / attach\n")
	sb.WriteString("  ctrl+a  Run analysis\n")
	sb.WriteString("  ctrl+o  Attach documents\n")
	sb.WriteString("  esc     Quit\n")
	return sb.String(), nil
}

func cmdDocs(m *Model, args string) (string, tea.Cmd) {
	return render.New(false).Documents(m.deps.Registry.Records()), nil
}

func cmdCompare(m *Model, args string) (string, tea.Cmd) {
	return compare.Render(0), nil
}

func cmdSummary(m *Model, args string) (string, tea.Cmd) {
	s := m.deps.Summary
	return fmt.Sprintf("Top module: %s\nConfidence: %s\nRisk: %s %s\n", s.TopModule, s.Confidence, render.RiskIcon(s.Risk), s.Risk), nil
}

func cmdReport(m *Model, args string) (string, tea.Cmd) {
	if m.deps.Client == nil {
		return "Service client unavailable", nil
	}
	id := args
	if id == "" {
		id = m.session.AnalysisID
	}
	if id == "" {
		return "No analysis yet. Import a repository and press ctrl+a.", nil
	}

	client := m.deps.Client
	return "Fetching report " + id + "...", func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		rep, err := client.GetAnalysis(ctx, id)
		if err != nil {
			return commandOutputMsg{text: "report " + id + ": " + api.Diagnostic(err)}
		}
		return commandOutputMsg{text: render.New(false).Report(id, rep)}
	}
}

func cmdPropose(m *Model, args string) (string, tea.Cmd) {
	if m.deps.Client == nil {
		return "Service client unavailable", nil
	}
	id := args
	if id == "" {
		id = m.session.AnalysisID
	}
	if id == "" {
		return "No analysis yet. Import a repository and press ctrl+a.", nil
	}

	client := m.deps.Client
	return "Requesting a proposal for " + id + "...", func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		p, err := client.ProposeRefactor(ctx, api.RefactorProposalRequest{AnalysisID: id})
		if err != nil {
			return commandOutputMsg{text: "propose " + id + ": " + api.Diagnostic(err)}
		}
		return commandOutputMsg{text: render.New(false).Proposal(p)}
	}
}

func cmdHealth(m *Model, args string) (string, tea.Cmd) {
	if m.deps.Client == nil {
		return "Service client unavailable", nil
	}
	client := m.deps.Client
	base := m.deps.APIBase
	return "Checking " + base + "...", func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		start := time.Now()
		res, err := client.Health(ctx)
		return commandOutputMsg{text: render.New(false).Health(base, res, err, time.Since(start))}
	}
}
