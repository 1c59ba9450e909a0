package tui

import (
	"path/filepath"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

const maxCandidates = 5000

// fileItem implements list.Item for the document picker
type fileItem struct {
	path     string
	relPath  string
	selected bool
}

func (i fileItem) Title() string {
	mark := "[ ]"
	if i.selected {
		mark = "[x]"
	}
	return mark + " " + i.relPath
}

func (i fileItem) Description() string { return i.path }
func (i fileItem) FilterValue() string { return i.relPath }

// fileItems is a slice of fileItem that implements fuzzy.Source
type fileItems []fileItem

func (f fileItems) String(i int) string { return f[i].relPath }
func (f fileItems) Len() int            { return len(f) }

// FilePicker selects documents from the working directory.
// Typing narrows the list by fuzzy match, space toggles, enter confirms.
type FilePicker struct {
	list    list.Model
	items   fileItems
	workDir string
	filter  string
	width   int
	height  int
}

// NewFilePicker creates a new document picker rooted at workDir
func NewFilePicker(workDir string, width, height int) *FilePicker {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetHeight(1)

	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.Color("205")).
		BorderForeground(lipgloss.Color("205"))

	l := list.New([]list.Item{}, delegate, width, height)
	l.Title = "Attach documents"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(lipgloss.Color("205")).
		Bold(true)

	return &FilePicker{
		list:    l,
		workDir: workDir,
		width:   width,
		height:  height,
	}
}

// SetFiles replaces the candidates with paths relative to the working directory.
func (fp *FilePicker) SetFiles(relPaths []string) {
	items := make(fileItems, 0, len(relPaths))
	for _, rel := range relPaths {
		items = append(items, fileItem{
			path:    filepath.Join(fp.workDir, rel),
			relPath: rel,
		})
	}

	fp.items = items
	fp.updateList(fp.filter)
}

// updateList updates the list with filtered items
func (fp *FilePicker) updateList(filter string) {
	fp.filter = filter

	var listItems []list.Item
	if filter == "" {
		for _, item := range fp.items {
			listItems = append(listItems, item)
		}
	} else {
		matches := fuzzy.FindFrom(filter, fp.items)
		for _, match := range matches {
			listItems = append(listItems, fp.items[match.Index])
		}
	}

	fp.list.SetItems(listItems)
	fp.list.Title = "Attach documents"
	if filter != "" {
		fp.list.Title += " · " + filter
	}
}

// Filter returns the current fuzzy filter.
func (fp *FilePicker) Filter() string {
	return fp.filter
}

// Update handles keys for the picker. Printable runes extend the filter,
// backspace shortens it, space toggles the highlighted file.
func (fp *FilePicker) Update(msg tea.Msg) (*FilePicker, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyRunes:
			fp.updateList(fp.filter + string(key.Runes))
			return fp, nil
		case tea.KeyBackspace:
			if fp.filter != "" {
				r := []rune(fp.filter)
				fp.updateList(string(r[:len(r)-1]))
			}
			return fp, nil
		case tea.KeySpace:
			fp.Toggle()
			return fp, nil
		}
	}

	var cmd tea.Cmd
	fp.list, cmd = fp.list.Update(msg)
	return fp, cmd
}

// Toggle flips the selection of the highlighted file.
func (fp *FilePicker) Toggle() {
	item, ok := fp.list.SelectedItem().(fileItem)
	if !ok {
		return
	}
	for i := range fp.items {
		if fp.items[i].path == item.path {
			fp.items[i].selected = !fp.items[i].selected
			break
		}
	}
	idx := fp.list.Index()
	fp.updateList(fp.filter)
	fp.list.Select(idx)
}

// View renders the file picker
func (fp *FilePicker) View() string {
	return fp.list.View()
}

// Selected returns the chosen paths in list order. With nothing toggled
// it falls back to the highlighted file.
func (fp *FilePicker) Selected() []string {
	var out []string
	for _, item := range fp.items {
		if item.selected {
			out = append(out, item.path)
		}
	}
	if len(out) > 0 {
		return out
	}
	if item, ok := fp.list.SelectedItem().(fileItem); ok {
		return []string{item.path}
	}
	return nil
}

// SetSize updates the picker dimensions
func (fp *FilePicker) SetSize(width, height int) {
	fp.width = width
	fp.height = height
	fp.list.SetSize(width, height)
}
