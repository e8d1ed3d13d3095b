package inbox

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/cosync/internal/keys"
	"github.com/nhle/cosync/internal/model"
	"github.com/nhle/cosync/internal/theme"
)

// MarkReadRequestMsg asks the root model to acknowledge one notification.
type MarkReadRequestMsg struct {
	ScopeID        string
	NotificationID string
}

// MarkAllReadRequestMsg asks the root model to acknowledge every
// notification in the scope.
type MarkAllReadRequestMsg struct {
	ScopeID string
}

// ResolveRequestMsg asks the root model to record an approval decision.
type ResolveRequestMsg struct {
	ScopeID    string
	ApprovalID string
	Approve    bool
}

// row is one navigable line: either a notification or an approval.
type row struct {
	notification *model.Notification
	approval     *model.Approval
}

// Model is the per-workspace inbox: the viewer's notifications on top,
// the approval requests awaiting them below.
type Model struct {
	scopeID       string
	title         string
	viewerID      string
	notifications []model.Notification
	approvals     []model.Approval
	rows          []row
	cursor        int
	keys          *keys.KeyMap
	loading       bool
	loadErr       error
	width         int
	height        int
}

// New creates an inbox view for one workspace.
func New(k *keys.KeyMap, viewerID string, width, height int) Model {
	return Model{
		keys:     k,
		viewerID: viewerID,
		loading:  true,
		width:    width,
		height:   height,
	}
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetScope points the inbox at a workspace and resets its state.
func (m *Model) SetScope(scopeID, title string) {
	m.scopeID = scopeID
	m.title = title
	m.notifications = nil
	m.approvals = nil
	m.rows = nil
	m.cursor = 0
	m.loading = true
	m.loadErr = nil
}

// ScopeID returns the workspace this inbox is showing.
func (m Model) ScopeID() string {
	return m.scopeID
}

// Title returns the workspace name.
func (m Model) Title() string {
	return m.title
}

// SetContent replaces the inbox rows with fetched data. Approvals not
// awaiting the viewer are filtered out here: the inbox only shows what
// the viewer can act on.
func (m *Model) SetContent(notifications []model.Notification, approvals []model.Approval) {
	m.notifications = notifications
	m.approvals = nil
	for _, a := range approvals {
		if a.AwaitingUser(m.viewerID) {
			m.approvals = append(m.approvals, a)
		}
	}
	m.rebuildRows()
	m.loading = false
	m.loadErr = nil
}

// RemoveApproval drops an acted-on approval row without waiting for
// the refetch to confirm it.
func (m *Model) RemoveApproval(approvalID string) {
	kept := m.approvals[:0]
	for _, a := range m.approvals {
		if a.ID != approvalID {
			kept = append(kept, a)
		}
	}
	m.approvals = kept
	m.rebuildRows()
}

// SetError records a failed primary load.
func (m *Model) SetError(err error) {
	m.loadErr = err
	m.loading = false
}

// rebuildRows recomputes the combined navigation rows, clamping the
// cursor.
func (m *Model) rebuildRows() {
	m.rows = m.rows[:0]
	for i := range m.notifications {
		m.rows = append(m.rows, row{notification: &m.notifications[i]})
	}
	for i := range m.approvals {
		m.rows = append(m.rows, row{approval: &m.approvals[i]})
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the inbox view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.MarkRead):
			if r, ok := m.selected(); ok && r.notification != nil && r.notification.Unread() {
				id := r.notification.ID
				return m, func() tea.Msg {
					return MarkReadRequestMsg{ScopeID: m.scopeID, NotificationID: id}
				}
			}
		case key.Matches(msg, m.keys.MarkAllRead):
			return m, func() tea.Msg {
				return MarkAllReadRequestMsg{ScopeID: m.scopeID}
			}
		case key.Matches(msg, m.keys.Approve):
			if r, ok := m.selected(); ok && r.approval != nil {
				id := r.approval.ID
				return m, func() tea.Msg {
					return ResolveRequestMsg{ScopeID: m.scopeID, ApprovalID: id, Approve: true}
				}
			}
		case key.Matches(msg, m.keys.Reject):
			if r, ok := m.selected(); ok && r.approval != nil {
				id := r.approval.ID
				return m, func() tea.Msg {
					return ResolveRequestMsg{ScopeID: m.scopeID, ApprovalID: id, Approve: false}
				}
			}
		}
	}
	return m, nil
}

func (m Model) selected() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

// View renders the inbox.
func (m Model) View() string {
	if m.loadErr != nil {
		return lipgloss.NewStyle().
			Padding(1, 2).
			Render(theme.ErrorStyle.Render("Could not load the inbox.") + "\n\n" +
				theme.HelpStyle.Render("ctrl+r to retry"))
	}
	if m.loading {
		return lipgloss.NewStyle().Padding(1, 2).Render(theme.HelpStyle.Render("Loading..."))
	}

	var b strings.Builder
	b.WriteString(theme.HeaderStyle.Render("Updates") + "\n")
	if len(m.notifications) == 0 {
		b.WriteString(theme.HelpStyle.Render("  nothing here") + "\n")
	}
	for i := range m.notifications {
		b.WriteString(m.renderRow(i, m.renderNotification(m.notifications[i])) + "\n")
	}

	b.WriteString("\n" + theme.HeaderStyle.Render("Waiting on you") + "\n")
	if len(m.approvals) == 0 {
		b.WriteString(theme.HelpStyle.Render("  nothing to approve") + "\n")
	}
	for i := range m.approvals {
		b.WriteString(m.renderRow(len(m.notifications)+i, m.renderApproval(m.approvals[i])) + "\n")
	}

	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}

// renderRow applies cursor highlighting to one line.
func (m Model) renderRow(index int, line string) string {
	if index == m.cursor {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// renderNotification draws one notification line.
func (m Model) renderNotification(n model.Notification) string {
	marker := " "
	if n.Unread() {
		marker = "●"
	}
	ts := n.CreatedAt.Local().Format("Jan 2 15:04")
	return fmt.Sprintf("%s %s  %s", marker, ts, notificationText(n.Kind))
}

// renderApproval draws one pending approval line.
func (m Model) renderApproval(a model.Approval) string {
	ts := a.CreatedAt.Local().Format("Jan 2 15:04")
	return fmt.Sprintf("%s  %s from %s %s",
		ts, a.EntityType, a.ProposerID,
		theme.ApprovalStatusStyle(string(a.Status)).Render(string(a.Status)))
}

// notificationText maps a notification kind to its display line.
func notificationText(kind model.NotificationKind) string {
	switch kind {
	case model.KindMessageReceived:
		return "New message from your partner"
	case model.KindApprovalRequested:
		return "Your partner requested your approval"
	case model.KindApprovalCompleted:
		return "Your request was approved"
	case model.KindApprovalRejected:
		return "Your request was declined"
	default:
		return string(kind)
	}
}
