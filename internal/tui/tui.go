// Package tui is the operator console: a Bubble Tea program over the
// session orchestrator, the conversation log and the document registry.
//
// The Bubble Tea loop is the only writer of console state. Network calls
// run as commands and their completions come back as messages, which are
// applied through the orchestrator on the loop.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/mozaika228/codebaseagent/internal/api"
	"github.com/mozaika228/codebaseagent/internal/compare"
	"github.com/mozaika228/codebaseagent/internal/conversation"
	"github.com/mozaika228/codebaseagent/internal/ingest"
	"github.com/mozaika228/codebaseagent/internal/logging"
	"github.com/mozaika228/codebaseagent/internal/metrics"
	"github.com/mozaika228/codebaseagent/internal/session"
	cbastrings "github.com/mozaika228/codebaseagent/internal/strings"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginLeft(2)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	disabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Strikethrough(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	focusedBoxStyle = boxStyle.
			BorderForeground(lipgloss.Color("205"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)
)

// panel is a focusable area of the console.
type panel int

const (
	panelRunner panel = iota
	panelChat
	panelDocuments
	panelCount
)

// ServiceClient serves the /report, /propose and /health commands.
type ServiceClient interface {
	GetAnalysis(ctx context.Context, analysisID string) (api.AnalysisReport, error)
	ProposeRefactor(ctx context.Context, req api.RefactorProposalRequest) (api.RefactorProposal, error)
	Health(ctx context.Context) (api.HealthResult, error)
}

// Deps are the collaborators the console drives.
type Deps struct {
	Orchestrator *session.Orchestrator
	Client       ServiceClient
	Conversation *conversation.Log
	Registry     *ingest.Registry
	Metrics      *metrics.Metrics
	Summary      conversation.Summary
	APIBase      string
	WorkDir      string

	// MarkdownStyle is a glamour standard style name. Empty detects the
	// terminal background.
	MarkdownStyle string
}

// Model is the main TUI model
type Model struct {
	deps Deps

	// State
	focus    panel
	picking  bool
	session  session.Session
	notice   string
	output   string
	ready    bool
	quitting bool

	// Components
	spinner   spinner.Model
	repoInput textinput.Model
	chatInput textinput.Model
	chat      viewport.Model
	picker    *FilePicker
	markdown  *glamour.TermRenderer
	width     int
	height    int

	recovery *logging.RecoveryHandler
	log      *logging.Logger
}

// Message types
type completionMsg struct{ c session.Completion }
type filesLoadedMsg struct {
	paths []string
	err   error
}
type commandOutputMsg struct{ text string }

// New creates a new TUI model
func New(deps Deps) Model {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Global()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	snap := deps.Orchestrator.Snapshot()

	repo := textinput.New()
	repo.Placeholder = "https://github.com/org/repo"
	repo.CharLimit = 500
	repo.Width = 60
	repo.SetValue(snap.RepoURL)
	repo.Focus()

	chat := textinput.New()
	chat.Placeholder = "Ask about architecture, hotspots, or risk (/help for commands)"
	chat.CharLimit = 2000
	chat.Width = 60

	return Model{
		deps:      deps,
		focus:     panelRunner,
		session:   snap,
		spinner:   s,
		repoInput: repo,
		chatInput: chat,
		recovery:  logging.NewRecoveryHandler("tui"),
		log:       logging.New("tui"),
	}
}

// Init initializes the TUI
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		textinput.Blink,
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.picking {
			return m.updatePicker(msg)
		}

		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "tab":
			m.setFocus((m.focus + 1) % panelCount)
			return m, nil
		case "shift+tab":
			m.setFocus((m.focus + panelCount - 1) % panelCount)
			return m, nil
		case "ctrl+a":
			return m.requestAnalysis()
		case "ctrl+o":
			return m.openPicker()
		case "enter":
			switch m.focus {
			case panelRunner:
				return m.requestImport()
			case panelChat:
				return m.submitChat()
			case panelDocuments:
				return m.openPicker()
			}
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case completionMsg:
		out := m.deps.Orchestrator.Apply(context.Background(), msg.c)
		m.session = out.Session
		if !out.Applied {
			m.log.Debug("stale_completion_ignored", map[string]interface{}{"kind": string(out.Kind), "seq": out.Seq})
		}

	case filesLoadedMsg:
		if msg.err != nil {
			m.picking = false
			m.notice = "cannot list files: " + msg.err.Error()
			break
		}
		m.picker.SetFiles(msg.paths)

	case commandOutputMsg:
		m.output = msg.text

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	// Update focused input
	var cmd tea.Cmd
	switch m.focus {
	case panelRunner:
		m.repoInput, cmd = m.repoInput.Update(msg)
	case panelChat:
		m.chatInput, cmd = m.chatInput.Update(msg)
	}
	cmds = append(cmds, cmd)

	// Update viewport
	m.chat, cmd = m.chat.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) setFocus(p panel) {
	m.focus = p
	m.repoInput.Blur()
	m.chatInput.Blur()
	switch p {
	case panelRunner:
		m.repoInput.Focus()
	case panelChat:
		m.chatInput.Focus()
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.ready = true

	inner := max(width-6, 20)
	m.repoInput.Width = max(inner-12, 10)
	m.chatInput.Width = max(inner-4, 10)

	// runner 7, bottom row 10, header 2, chat input 1, borders 2, footer 2
	chatHeight := max(height-24, 3)
	m.chat = viewport.New(inner, chatHeight)
	m.chat.KeyMap = viewport.KeyMap{
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
	}
	m.markdown = newMarkdown(m.deps.MarkdownStyle, inner-2)
	m.refreshChat()

	if m.picker != nil {
		m.picker.SetSize(width-4, height-4)
	}
}

func newMarkdown(style string, width int) *glamour.TermRenderer {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil
	}
	return r
}

// run performs req off the loop. A panic inside the call becomes a failed completion.
func (m Model) run(req *session.Request) tea.Cmd {
	recovery := m.recovery
	return func() tea.Msg {
		var c session.Completion
		err := recovery.WrapError(func() error {
			c = req.Run(context.Background())
			return nil
		})
		if err != nil {
			c = session.Completion{Kind: req.Kind, Seq: req.Seq, Target: req.Target, Err: err}
		}
		return completionMsg{c: c}
	}
}

func (m Model) requestImport() (tea.Model, tea.Cmd) {
	req, err := m.deps.Orchestrator.RequestImport(m.repoInput.Value())
	if err != nil {
		m.notice = err.Error()
		return m, nil
	}
	m.notice = ""
	m.session = m.deps.Orchestrator.Snapshot()
	return m, m.run(req)
}

func (m Model) requestAnalysis() (tea.Model, tea.Cmd) {
	req, err := m.deps.Orchestrator.RequestAnalysis()
	if err != nil {
		m.notice = "analysis unavailable: import a repository first"
		return m, nil
	}
	m.notice = ""
	m.session = m.deps.Orchestrator.Snapshot()
	return m, m.run(req)
}

func (m Model) submitChat() (tea.Model, tea.Cmd) {
	text := m.chatInput.Value()
	m.chatInput.SetValue("")

	if isSlashCommand(text) {
		out, cmd := executeSlashCommand(&m, text)
		m.output = out
		return m, cmd
	}

	if m.deps.Conversation.Send(context.Background(), text) {
		m.refreshChat()
	}
	return m, nil
}

func (m Model) openPicker() (tea.Model, tea.Cmd) {
	if m.picker == nil {
		m.picker = NewFilePicker(m.deps.WorkDir, max(m.width-4, 20), max(m.height-4, 5))
	}
	m.picking = true
	workDir := m.deps.WorkDir
	return m, func() tea.Msg {
		paths, err := ingest.Candidates(workDir, maxCandidates)
		return filesLoadedMsg{paths: paths, err: err}
	}
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "esc":
		m.picking = false
		return m, nil
	case "enter":
		m.picking = false
		paths := m.picker.Selected()
		if len(paths) == 0 {
			return m, nil
		}
		files, err := ingest.StatFiles(paths)
		if err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.deps.Registry.Ingest(files)
		m.notice = fmt.Sprintf("attached %d document(s)", len(files))
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m *Model) refreshChat() {
	m.chat.SetContent(m.renderTurns())
	m.chat.GotoBottom()
}

func (m Model) renderTurns() string {
	var b strings.Builder
	for _, t := range m.deps.Conversation.Turns() {
		if t.Role == conversation.RoleUser {
			b.WriteString(userStyle.Render("you ›") + " " + t.Text + "\n")
			continue
		}
		b.WriteString(m.renderMarkdown(t.Text) + "\n")
	}
	return b.String()
}

func (m Model) renderMarkdown(text string) string {
	if m.markdown == nil {
		return text
	}
	rendered, err := m.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(rendered, "\n")
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if !m.ready {
		return fmt.Sprintf("\n  %s Loading...", m.spinner.View())
	}

	if m.picking {
		return m.viewPicker()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◆ Codebase Agent Console") + "\n\n")
	b.WriteString(m.box(panelRunner, m.viewRunner()) + "\n")
	b.WriteString(m.box(panelChat, m.chat.View()+"\n"+m.chatInput.View()) + "\n")

	bottom := lipgloss.JoinHorizontal(lipgloss.Top,
		m.box(panelDocuments, m.viewDocuments()),
		boxStyle.Render(m.viewResult()),
		compare.Render(0),
	)
	b.WriteString(bottom + "\n")
	b.WriteString(m.viewFooter())

	return b.String()
}

func (m Model) box(p panel, content string) string {
	style := boxStyle
	if m.focus == p {
		style = focusedBoxStyle
	}
	if p != panelDocuments {
		style = style.Width(max(m.width-4, 20))
	}
	return style.Render(content)
}

func (m Model) viewRunner() string {
	var b strings.Builder

	b.WriteString("Repo URL  " + m.repoInput.View() + "\n")

	status := m.session.Status
	switch {
	case m.session.InFlight():
		status = m.spinner.View() + " " + status
	case m.session.Phase == session.PhaseFailed:
		status = errorStyle.Render(status)
	case m.session.Phase == session.PhaseImported || m.session.Phase == session.PhaseAnalysisStarted:
		status = activeStyle.Render(status)
	}
	b.WriteString("Status    " + status + "\n")
	b.WriteString(fmt.Sprintf("Repo ID   %s    Analysis ID  %s\n",
		cbastrings.OrDash(m.session.RepoID),
		cbastrings.OrDash(m.session.AnalysisID),
	))

	analyze := disabledStyle.Render("ctrl+a analyze")
	if m.session.RepoID != "" {
		analyze = activeStyle.Render("ctrl+a analyze")
	}
	b.WriteString(infoStyle.Render("enter import") + " │ " + analyze)

	if m.notice != "" {
		b.WriteString("\n" + infoStyle.Render(m.notice))
	}
	return b.String()
}

func (m Model) viewDocuments() string {
	records := m.deps.Registry.Records()
	var total int64
	for _, r := range records {
		total += r.Size
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Documents %d (%s)\n", len(records), humanize.Bytes(uint64(total))))

	start := max(len(records)-5, 0)
	for _, r := range records[start:] {
		b.WriteString(infoStyle.Render("  "+cbastrings.Truncate(r.Name, 24)) + "\n")
	}
	b.WriteString(infoStyle.Render("ctrl+o attach"))
	return b.String()
}

func (m Model) viewResult() string {
	if m.output != "" {
		return strings.TrimRight(m.output, "\n")
	}
	s := m.deps.Summary
	return fmt.Sprintf("RAG result\nTop module  %s\nConfidence  %s\nRisk        %s",
		s.TopModule, s.Confidence, s.Risk)
}

func (m Model) viewPicker() string {
	help := "type to filter │ space: toggle │ enter: attach │ esc: cancel"
	return m.picker.View() + "\n" + helpStyle.Render("  "+help)
}

func (m Model) viewFooter() string {
	snap := m.deps.Metrics.Snapshot()
	bar := fmt.Sprintf("imports %d (%d failed) │ analyses %d (%d failed) │ stale %d │ messages %d │ docs %d",
		snap.ImportRequests, snap.ImportFailures,
		snap.AnalysisRequests, snap.AnalysisFailures,
		snap.StaleDiscards, snap.MessagesSent, snap.DocumentsIngested,
	)
	help := "tab: next panel │ enter: import/send │ ctrl+a: analyze │ ctrl+o: attach │ esc: quit"
	return statusBarStyle.Render(bar) + "\n" + helpStyle.Render("  "+help)
}

// Run starts the TUI. Cancelling ctx stops the program.
func Run(ctx context.Context, deps Deps) error {
	p := tea.NewProgram(New(deps), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
