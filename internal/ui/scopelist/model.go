package scopelist

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/cosync/internal/keys"
	"github.com/nhle/cosync/internal/model"
	"github.com/nhle/cosync/internal/theme"
)

// SelectedScopeMsg is sent when the user opens a workspace conversation.
type SelectedScopeMsg struct {
	ScopeID string
	Name    string
}

// OpenInboxMsg is sent when the user opens a workspace's inbox.
type OpenInboxMsg struct {
	ScopeID string
	Name    string
}

// Model is the workspace list view with per-scope activity badges.
type Model struct {
	list      list.Model
	keys      *keys.KeyMap
	summaries map[string]model.ScopeSummary
	loadErr   error
	width     int
	height    int
}

// New creates a new workspace list model.
func New(k *keys.KeyMap, width, height int) Model {
	summaries := make(map[string]model.ScopeSummary)
	delegate := ItemDelegate{summaries: summaries}

	l := list.New([]list.Item{}, delegate, width, height)
	l.Title = "Workspaces"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:      l,
		keys:      k,
		summaries: summaries,
		width:     width,
		height:    height,
	}
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}

// SetWorkspaces replaces the listed workspaces.
func (m *Model) SetWorkspaces(workspaces []model.Workspace) {
	items := make([]list.Item, len(workspaces))
	for i, w := range workspaces {
		items[i] = WorkspaceItem{Workspace: w}
	}
	m.list.SetItems(items)
	m.loadErr = nil
}

// SetSummaries replaces the badge data. The map shared with the
// delegate is mutated in place so the next render picks it up.
func (m *Model) SetSummaries(summaries map[string]model.ScopeSummary) {
	for k := range m.summaries {
		delete(m.summaries, k)
	}
	for k, v := range summaries {
		m.summaries[k] = v
	}
}

// SetError records a failed primary load; the view renders it with a
// retry hint instead of the list.
func (m *Model) SetError(err error) {
	m.loadErr = err
}

// Selected returns the currently highlighted workspace, if any.
func (m Model) Selected() (model.Workspace, bool) {
	item, ok := m.list.SelectedItem().(WorkspaceItem)
	if !ok {
		return model.Workspace{}, false
	}
	return item.Workspace, true
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the workspace list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Select):
			if w, ok := m.Selected(); ok {
				return m, func() tea.Msg {
					return SelectedScopeMsg{ScopeID: w.ID, Name: w.Name}
				}
			}
			return m, nil
		case key.Matches(msg, m.keys.Inbox):
			if w, ok := m.Selected(); ok {
				return m, func() tea.Msg {
					return OpenInboxMsg{ScopeID: w.ID, Name: w.Name}
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the workspace list, or the error state with a retry
// hint when the primary load failed.
func (m Model) View() string {
	if m.loadErr != nil {
		return lipgloss.NewStyle().
			Padding(1, 2).
			Render(theme.ErrorStyle.Render("Could not load workspaces.") + "\n\n" +
				theme.HelpStyle.Render("ctrl+r to retry"))
	}
	return m.list.View()
}
