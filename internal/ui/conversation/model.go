package conversation

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/cosync/internal/keys"
	"github.com/nhle/cosync/internal/reconcile"
	"github.com/nhle/cosync/internal/theme"
)

// SendRequestMsg is sent when the user submits the message input. The
// root model runs it through the reconciler and the backend.
type SendRequestMsg struct {
	Content string
}

// inputHeight is the number of terminal rows reserved for the
// message input.
const inputHeight = 3

// Model is the conversation view for one workspace: the merged message
// stream above, the compose input below. The message state itself
// lives in the root model's reconciler; this view renders the entries
// it is handed.
type Model struct {
	title    string
	viewerID string
	entries  []reconcile.Entry
	viewport viewport.Model
	input    textarea.Model
	keys     *keys.KeyMap
	loading  bool
	sending  bool
	loadErr  error
	width    int
	height   int
}

// New creates a conversation view.
func New(k *keys.KeyMap, viewerID string, width, height int) Model {
	input := textarea.New()
	input.Placeholder = "Write a message..."
	input.SetHeight(1)
	input.SetWidth(width - 4)
	input.ShowLineNumbers = false
	input.Focus()

	vp := viewport.New(width, height-inputHeight)

	return Model{
		viewerID: viewerID,
		viewport: vp,
		input:    input,
		keys:     k,
		loading:  true,
		width:    width,
		height:   height,
	}
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - inputHeight
	m.input.SetWidth(width - 4)
	m.refresh()
}

// SetTitle sets the workspace name shown in the header.
func (m *Model) SetTitle(title string) {
	m.title = title
}

// Title returns the workspace name.
func (m Model) Title() string {
	return m.title
}

// SetEntries replaces the rendered message stream and scrolls to the
// bottom. Called after every reconciler mutation.
func (m *Model) SetEntries(entries []reconcile.Entry) {
	m.entries = entries
	m.loading = false
	m.loadErr = nil
	m.refresh()
}

// SetLoading toggles the loading placeholder.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// SetError records a failed primary load; rendered with a retry hint.
func (m *Model) SetError(err error) {
	m.loadErr = err
	m.loading = false
}

// SetSending reflects whether a send is in flight; the input stays
// usable for typing but submissions are ignored until it clears.
func (m *Model) SetSending(sending bool) {
	m.sending = sending
}

// RestoreDraft puts rolled-back content back into the input field so
// the user can retry a failed send.
func (m *Model) RestoreDraft(content string) {
	m.input.SetValue(content)
	m.input.CursorEnd()
}

// ClearInput empties the input after a send is accepted optimistically.
func (m *Model) ClearInput() {
	m.input.Reset()
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles messages for the conversation view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Send) {
			content := m.input.Value()
			if strings.TrimSpace(content) == "" || m.sending {
				// Empty submissions and overlapping sends are silent
				// no-ops.
				return m, nil
			}
			return m, func() tea.Msg {
				return SendRequestMsg{Content: content}
			}
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View renders the message stream above the compose input.
func (m Model) View() string {
	var body string
	switch {
	case m.loadErr != nil:
		body = lipgloss.NewStyle().
			Padding(1, 2).
			Render(theme.ErrorStyle.Render("Could not load messages.") + "\n\n" +
				theme.HelpStyle.Render("ctrl+r to retry"))
	case m.loading:
		body = lipgloss.NewStyle().Padding(1, 2).Render(theme.HelpStyle.Render("Loading..."))
	default:
		body = m.viewport.View()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		body,
		m.input.View(),
	)
}

// refresh rebuilds the viewport content from the entries and scrolls
// to the newest message.
func (m *Model) refresh() {
	var b strings.Builder
	for _, entry := range m.entries {
		if entry.DayStart {
			marker := entry.Message.CreatedAt.Local().Format("Mon, Jan 2 2006")
			b.WriteString(theme.DayMarkerStyle.Render("── "+marker+" ──") + "\n")
		}
		b.WriteString(m.renderMessage(entry) + "\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// renderMessage draws one message line: time, sender, content.
func (m *Model) renderMessage(entry reconcile.Entry) string {
	msg := entry.Message
	ts := msg.CreatedAt.Local().Format("15:04")

	sender := msg.SenderID
	if msg.SenderID == m.viewerID {
		sender = "you"
	}
	line := fmt.Sprintf("%s %s: %s", ts, sender, msg.Content)

	switch {
	case msg.Pending():
		return theme.PendingMessageStyle.Render(line + " (sending...)")
	case msg.SenderID == m.viewerID:
		return theme.OwnMessageStyle.Render(line)
	default:
		return line
	}
}
