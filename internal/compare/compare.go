// Package compare holds the static local-versus-cloud model comparison.
package compare

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Row is one model profile.
type Row struct {
	Model   string
	Latency string
	Risk    string
}

var rows = []Row{
	{Model: "Local (Ollama)", Latency: "1.8s", Risk: "medium"},
	{Model: "Cloud baseline", Latency: "1.1s", Risk: "low"},
}

// Headers are the column titles.
var Headers = []string{"Model", "Latency", "Risk"}

// Rows returns the comparison rows.
func Rows() []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	return out
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Render draws the comparison as a bordered table. width <= 0 lets the
// table size itself.
func Render(width int) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(Headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, r := range rows {
		t.Row(r.Model, r.Latency, r.Risk)
	}
	if width > 0 {
		t.Width(width)
	}
	return t.String()
}
