// Package app wires the realtime channel, the optimistic send
// reconciler, the badge summarizer, and the revalidation backstop into
// one Bubble Tea program. Every asynchronous completion enters through
// Update as a message; shared state is only ever touched there.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/cosync/internal/aggregate"
	"github.com/nhle/cosync/internal/api"
	"github.com/nhle/cosync/internal/channel"
	"github.com/nhle/cosync/internal/keys"
	"github.com/nhle/cosync/internal/model"
	"github.com/nhle/cosync/internal/reconcile"
	"github.com/nhle/cosync/internal/revalidate"
	"github.com/nhle/cosync/internal/store"
	"github.com/nhle/cosync/internal/ui"
	"github.com/nhle/cosync/internal/ui/conversation"
	"github.com/nhle/cosync/internal/ui/inbox"
	"github.com/nhle/cosync/internal/ui/scopelist"
)

// View identifies the active screen.
type View int

const (
	ViewScopes View = iota
	ViewConversation
	ViewInbox
)

// Revalidation target names. The home target always exists; the
// conversation and inbox targets are registered on view entry and
// unregistered on exit.
const (
	targetHome         = "home"
	targetConversation = "conversation"
	targetInbox        = "inbox"
)

// Model is the root application model.
type Model struct {
	cfg    model.AppConfig
	logger *slog.Logger
	api    *api.Client
	chann  *channel.Client
	store  store.Store
	viewer api.Viewer

	reval      *revalidate.Revalidator
	summarizer *aggregate.Summarizer
	conv       *reconcile.Conversation

	eventCh  chan tea.Msg
	msgSub   *channel.Subscription
	notifSub *channel.Subscription
	apprSub  *channel.Subscription

	currentView  View
	scopes       scopelist.Model
	conversation conversation.Model
	inbox        inbox.Model

	// The fresh flags mark that authoritative network data has landed
	// for a view, so a slower cache seed arriving afterwards is
	// discarded instead of regressing it.
	homeFresh    bool
	historyFresh bool
	inboxFresh   bool

	layout ui.Layout
	keys   *keys.KeyMap
	ready  bool
}

// Config carries the dependencies the root model needs.
type Config struct {
	App     model.AppConfig
	Logger  *slog.Logger
	API     *api.Client
	Channel *channel.Client
	Store   store.Store
	Viewer  api.Viewer
}

// New creates the root model, registers the home revalidation target,
// and opens the badge subscriptions.
func New(config Config) Model {
	k := keys.DefaultKeyMap()
	layout := ui.NewLayout(80, 24)

	m := Model{
		cfg:          config.App,
		logger:       config.Logger,
		api:          config.API,
		chann:        config.Channel,
		store:        config.Store,
		viewer:       config.Viewer,
		reval:        revalidate.New(),
		summarizer:   aggregate.NewSummarizer(config.Viewer.ID),
		eventCh:      make(chan tea.Msg, 256),
		scopes:       scopelist.New(k, layout.ContentWidth(), layout.ContentHeight()),
		conversation: conversation.New(k, config.Viewer.ID, layout.ContentWidth(), layout.ContentHeight()),
		inbox:        inbox.New(k, config.Viewer.ID, layout.ContentWidth(), layout.ContentHeight()),
		layout:       layout,
		keys:         k,
	}

	m.reval.Register(targetHome, m.revalidateHome)
	m.openHomeSubs()

	return m
}

// revalidateHome re-fetches the workspace directory and every badge
// summary in one pass.
func (m Model) revalidateHome(ctx context.Context) tea.Msg {
	workspaces, err := m.api.Workspaces(ctx)
	if err != nil {
		return homeRevalidatedMsg{err: err}
	}
	summaries, err := m.api.Summaries(ctx, scopeIDs(workspaces))
	if err != nil {
		return homeRevalidatedMsg{err: err}
	}
	return homeRevalidatedMsg{workspaces: workspaces, summaries: summaries}
}

// Init starts the revalidator, arms the channel subscription, and
// kicks off the initial home load: cache seed first, network fetch in
// parallel.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.reval.Start(),
		m.waitForChannelEvent(),
		m.loadHomeFromCache(),
		m.fetchWorkspaces(),
	)
}

// Update is the single place application state changes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.scopes.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
		m.conversation.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
		m.inbox.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
		m.ready = true
		return m, nil

	case tea.FocusMsg:
		// Foreground visibility regained: every view may have drifted
		// while events were not being rendered.
		m.reval.TriggerAll()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case revalidate.ResultMsg:
		rearm := m.reval.WaitForNextResult()
		updated, cmd := m.Update(msg.Inner)
		return updated, tea.Batch(rearm, cmd)

	case channelEventMsg:
		return m.handleChannelEvent(msg)

	case channelStatusMsg:
		return m.handleChannelStatus(msg)

	case scopelist.SelectedScopeMsg:
		return m.enterConversation(msg.ScopeID, msg.Name)

	case scopelist.OpenInboxMsg:
		return m.enterInbox(msg.ScopeID, msg.Name)

	case conversation.SendRequestMsg:
		return m.handleSendRequest(msg)

	case inbox.MarkReadRequestMsg:
		m.summarizer.MarkReadLocal(msg.ScopeID, 1)
		m.scopes.SetSummaries(m.summarizer.Summaries())
		return m, m.markRead(msg.ScopeID, msg.NotificationID)

	case inbox.MarkAllReadRequestMsg:
		m.summarizer.MarkAllReadLocal(msg.ScopeID)
		m.scopes.SetSummaries(m.summarizer.Summaries())
		return m, m.markAllRead(msg.ScopeID)

	case inbox.ResolveRequestMsg:
		m.summarizer.ResolveApprovalLocal(msg.ScopeID)
		m.scopes.SetSummaries(m.summarizer.Summaries())
		m.inbox.RemoveApproval(msg.ApprovalID)
		return m, m.resolveApproval(msg.ScopeID, msg.ApprovalID, msg.Approve)

	case homeLoadedMsg:
		return m.handleHomeLoaded(msg)

	case summariesLoadedMsg:
		if msg.err != nil {
			// Badges are a secondary surface; the list stays usable.
			m.logger.Warn("loading summaries failed", "error", msg.err)
			return m, nil
		}
		m.summarizer.SetSummaries(msg.summaries)
		m.scopes.SetSummaries(m.summarizer.Summaries())
		return m, nil

	case homeRevalidatedMsg:
		if msg.err != nil {
			m.logger.Warn("home revalidation failed", "error", msg.err)
			return m, nil
		}
		m.scopes.SetWorkspaces(msg.workspaces)
		m.summarizer.SetTracked(scopeIDs(msg.workspaces))
		m.summarizer.SetSummaries(msg.summaries)
		m.scopes.SetSummaries(m.summarizer.Summaries())
		m.homeFresh = true
		return m, nil

	case historyLoadedMsg:
		return m.handleHistoryLoaded(msg)

	case sendResultMsg:
		return m.handleSendResult(msg)

	case inboxLoadedMsg:
		if m.currentView != ViewInbox || m.inbox.ScopeID() != msg.scopeID {
			return m, nil
		}
		if msg.err != nil {
			m.inbox.SetError(msg.err)
			return m, nil
		}
		if msg.fromCache && m.inboxFresh {
			return m, nil
		}
		m.inbox.SetContent(msg.notifications, msg.approvals)
		if msg.fromCache {
			return m, nil
		}
		m.inboxFresh = true
		return m, m.fetchSummaries(m.summarizer.TrackedScopes())

	case markReadDoneMsg:
		if msg.err != nil {
			m.logger.Warn("mark read failed", "scope_id", msg.scopeID, "error", msg.err)
		}
		return m, m.refreshInbox(msg.scopeID)

	case approvalResolvedMsg:
		if msg.err != nil {
			m.logger.Warn("resolving approval failed", "scope_id", msg.scopeID, "error", msg.err)
		}
		return m, m.refreshInbox(msg.scopeID)
	}

	return m.updateActiveView(msg)
}

// refreshInbox re-fetches the inbox after a mutation so the rows and
// badges reflect the server-confirmed state, correcting the optimistic
// local adjustment on failure.
func (m Model) refreshInbox(scopeID string) tea.Cmd {
	cmds := []tea.Cmd{m.fetchSummaries(m.summarizer.TrackedScopes())}
	if m.currentView == ViewInbox && m.inbox.ScopeID() == scopeID {
		cmds = append(cmds, m.fetchInbox(scopeID))
	}
	return tea.Batch(cmds...)
}

// handleKey routes global keybindings, then the rest to the active
// view. Inside the conversation view plain letters belong to the
// compose input, so only control sequences act globally there.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	composing := m.currentView == ViewConversation

	switch {
	case key.Matches(msg, m.keys.Quit) && (!composing || msg.String() == "ctrl+c"):
		m.shutdown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		return m.goBack()

	case key.Matches(msg, m.keys.Refresh):
		m.reval.TriggerAll()
		return m, nil
	}

	return m.updateActiveView(msg)
}

// updateActiveView forwards a message to whichever view is on screen.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case ViewScopes:
		m.scopes, cmd = m.scopes.Update(msg)
	case ViewConversation:
		m.conversation, cmd = m.conversation.Update(msg)
	case ViewInbox:
		m.inbox, cmd = m.inbox.Update(msg)
	}
	return m, cmd
}

// goBack returns to the workspace list, tearing down whatever the
// current view holds. Subscription close and target unregistration run
// before the view state is dropped.
func (m Model) goBack() (tea.Model, tea.Cmd) {
	switch m.currentView {
	case ViewConversation:
		m.closeConversationSub()
		m.reval.Unregister(targetConversation)
		m.conv = nil
		m.currentView = ViewScopes
	case ViewInbox:
		m.reval.Unregister(targetInbox)
		m.currentView = ViewScopes
	}
	return m, nil
}

// enterConversation opens the per-scope message subscription, builds a
// fresh reconciler, and loads history cache-first.
func (m Model) enterConversation(scopeID, name string) (tea.Model, tea.Cmd) {
	m.openConversationSub(scopeID)
	m.conv = reconcile.NewConversation(scopeID, m.viewer.ID)
	m.conversation = conversation.New(m.keys, m.viewer.ID, m.layout.ContentWidth(), m.layout.ContentHeight())
	m.conversation.SetTitle(name)
	m.currentView = ViewConversation
	m.historyFresh = false

	apiClient := m.api
	m.reval.Register(targetConversation, func(ctx context.Context) tea.Msg {
		messages, err := apiClient.Messages(ctx, scopeID)
		if err != nil {
			return historyLoadedMsg{scopeID: scopeID, err: err}
		}
		return historyLoadedMsg{scopeID: scopeID, messages: messages}
	})

	return m, tea.Batch(
		m.conversation.Init(),
		m.loadHistoryFromCache(scopeID),
		m.fetchHistory(scopeID),
	)
}

// enterInbox opens the per-workspace inbox view.
func (m Model) enterInbox(scopeID, name string) (tea.Model, tea.Cmd) {
	m.inbox.SetScope(scopeID, name)
	m.currentView = ViewInbox
	m.inboxFresh = false

	apiClient := m.api
	m.reval.Register(targetInbox, func(ctx context.Context) tea.Msg {
		notifications, err := apiClient.Notifications(ctx, scopeID)
		if err != nil {
			return inboxLoadedMsg{scopeID: scopeID, err: err}
		}
		approvals, err := apiClient.Approvals(ctx, scopeID)
		if err != nil {
			return inboxLoadedMsg{scopeID: scopeID, err: err}
		}
		return inboxLoadedMsg{scopeID: scopeID, notifications: notifications, approvals: approvals}
	})

	return m, tea.Batch(
		m.loadInboxFromCache(scopeID),
		m.fetchInbox(scopeID),
	)
}

// handleSendRequest runs the optimistic send: inject the pending
// entry, clear the input, and fire the create request.
func (m Model) handleSendRequest(msg conversation.SendRequestMsg) (tea.Model, tea.Cmd) {
	if m.conv == nil {
		return m, nil
	}
	pending, ok := m.conv.Send(msg.Content, time.Now())
	if !ok {
		return m, nil
	}
	m.conversation.ClearInput()
	m.conversation.SetSending(true)
	m.conversation.SetEntries(m.conv.Entries())
	return m, m.sendMessage(m.conv.ScopeID(), pending.Content)
}

// handleSendResult resolves or rolls back the optimistic entry.
// Results for a conversation the user has left are dropped.
func (m Model) handleSendResult(msg sendResultMsg) (tea.Model, tea.Cmd) {
	if m.conv == nil || m.conv.ScopeID() != msg.scopeID {
		return m, nil
	}
	m.conversation.SetSending(false)
	if msg.err != nil {
		draft := m.conv.FailSend()
		m.conversation.RestoreDraft(draft)
		m.conversation.SetEntries(m.conv.Entries())
		m.logger.Warn("sending message failed", "scope_id", msg.scopeID, "error", msg.err)
		return m, nil
	}
	m.conv.ResolveSend(*msg.message)
	m.conversation.SetEntries(m.conv.Entries())
	return m, nil
}

// handleHomeLoaded applies a workspace directory load, from cache or
// network. A cache seed that loses the race against the network fetch
// is dropped.
func (m Model) handleHomeLoaded(msg homeLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if !m.homeFresh {
			m.scopes.SetError(msg.err)
		}
		m.logger.Warn("loading workspaces failed", "error", msg.err)
		return m, nil
	}
	if msg.fromCache && m.homeFresh {
		return m, nil
	}
	m.scopes.SetWorkspaces(msg.workspaces)
	m.summarizer.SetTracked(scopeIDs(msg.workspaces))
	if msg.fromCache {
		m.summarizer.Recompute(msg.notifications, msg.approvals)
		m.scopes.SetSummaries(m.summarizer.Summaries())
		return m, nil
	}
	m.homeFresh = true
	return m, m.fetchSummaries(m.summarizer.TrackedScopes())
}

// handleHistoryLoaded applies a conversation history load. Results for
// a scope the user has left are dropped on arrival.
func (m Model) handleHistoryLoaded(msg historyLoadedMsg) (tea.Model, tea.Cmd) {
	if m.conv == nil || m.conv.ScopeID() != msg.scopeID {
		return m, nil
	}
	if msg.err != nil {
		if m.conv.Len() == 0 {
			m.conversation.SetError(msg.err)
		}
		m.logger.Warn("loading history failed", "scope_id", msg.scopeID, "error", msg.err)
		return m, nil
	}
	if msg.fromCache && m.historyFresh {
		return m, nil
	}
	m.conv.SetHistory(msg.messages)
	m.conversation.SetEntries(m.conv.Entries())
	if !msg.fromCache {
		m.historyFresh = true
	}
	return m, nil
}

// handleChannelEvent applies one realtime event and re-arms the
// subscription command.
func (m Model) handleChannelEvent(msg channelEventMsg) (tea.Model, tea.Cmd) {
	rearm := m.waitForChannelEvent()
	event := msg.event

	switch event.Entity {
	case channel.EntityMessages:
		if event.Message == nil || m.conv == nil || event.Message.ScopeID != m.conv.ScopeID() {
			return m, rearm
		}
		m.conv.ApplyEvent(*event.Message, time.Now())
		m.conversation.SetEntries(m.conv.Entries())
		return m, rearm

	case channel.EntityNotifications, channel.EntityApprovals:
		// Counter state is never patched from the event payload; the
		// event is only the signal to recompute.
		cmds := []tea.Cmd{rearm, m.fetchSummaries(m.summarizer.TrackedScopes())}
		if m.currentView == ViewInbox && m.inbox.ScopeID() == event.ScopeID() {
			cmds = append(cmds, m.fetchInbox(event.ScopeID()))
		}
		return m, tea.Batch(cmds...)
	}

	return m, rearm
}

// handleChannelStatus reacts to subscription degradation by triggering
// the matching revalidation target.
func (m Model) handleChannelStatus(msg channelStatusMsg) (tea.Model, tea.Cmd) {
	rearm := m.waitForChannelEvent()

	switch msg.status {
	case channel.StatusChannelError, channel.StatusTimedOut, channel.StatusClosed:
	default:
		return m, rearm
	}
	logFn := m.logger.Warn
	if msg.status == channel.StatusClosed {
		logFn = m.logger.Debug
	}
	logFn("subscription degraded",
		"entity", string(msg.filter.Entity),
		"scope_id", msg.filter.ScopeID,
		"status", string(msg.status))

	switch msg.filter.Entity {
	case channel.EntityMessages:
		m.reval.Trigger(targetConversation)
	case channel.EntityNotifications, channel.EntityApprovals:
		m.reval.Trigger(targetHome)
		if m.currentView == ViewInbox {
			m.reval.Trigger(targetInbox)
		}
	}
	return m, rearm
}

// shutdown tears down the background machinery before the program
// exits.
func (m Model) shutdown() {
	m.closeConversationSub()
	m.closeHomeSubs()
	m.reval.Stop()
	m.chann.Close()
}

// View renders the active view inside the shared frame.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var title, content, hints string
	switch m.currentView {
	case ViewScopes:
		title = "cosync"
		content = m.scopes.View()
		hints = "enter open · i inbox · ctrl+r refresh · q quit"
	case ViewConversation:
		title = m.conversation.Title()
		content = m.conversation.View()
		hints = "enter send · esc back · ctrl+r refresh"
	case ViewInbox:
		title = m.inbox.Title() + " inbox"
		content = m.inbox.View()
		hints = "m read · M all read · y approve · n reject · esc back"
	}

	header := m.layout.RenderHeader(title, connLabel(m.chann.State()))
	statusBar := m.layout.RenderStatusBar(hints)
	return m.layout.RenderWithFrame(header, content, statusBar)
}

// connLabel renders the channel connection state for the header.
func connLabel(state channel.State) string {
	switch state {
	case channel.StateConnected:
		return "● live"
	case channel.StateConnecting:
		return "◌ connecting"
	case channel.StateDisconnected:
		return "○ offline"
	default:
		return fmt.Sprintf("! %s", string(state))
	}
}

// scopeIDs extracts the scope IDs from a workspace directory listing.
func scopeIDs(workspaces []model.Workspace) []string {
	ids := make([]string, len(workspaces))
	for i, w := range workspaces {
		ids[i] = w.ID
	}
	return ids
}
