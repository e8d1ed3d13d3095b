package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/cosync/internal/model"
	"github.com/nhle/cosync/internal/reconcile"
	"github.com/nhle/cosync/internal/store"
)

// fetchTimeout bounds the on-demand fetches issued directly from the
// update loop. Revalidator-driven fetches carry their own timeout.
const fetchTimeout = 30 * time.Second

// loadHomeFromCache seeds the workspace list from the local cache so
// the view renders before the first network round-trip completes.
func (m Model) loadHomeFromCache() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		workspaces, err := m.store.GetWorkspaces(ctx)
		if err != nil || len(workspaces) == 0 {
			// A cold cache is not an error state; the fetch is coming.
			return nil
		}

		// Cached inbox rows let the badge fold run before the first
		// summary fetch lands, so an offline start still shows badges.
		notifications, err := m.store.GetNotifications(ctx, store.NotificationFilter{UnreadOnly: true})
		if err != nil {
			m.logger.Warn("reading cached notifications failed", "error", err)
		}
		approvals, err := m.store.GetApprovals(ctx, "")
		if err != nil {
			m.logger.Warn("reading cached approvals failed", "error", err)
		}

		return homeLoadedMsg{
			workspaces:    workspaces,
			notifications: notifications,
			approvals:     approvals,
			fromCache:     true,
		}
	}
}

// fetchWorkspaces loads the workspace directory from the backend and
// writes it back to the cache.
func (m Model) fetchWorkspaces() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		workspaces, err := m.api.Workspaces(ctx)
		if err != nil {
			return homeLoadedMsg{err: err}
		}
		if err := m.store.UpsertWorkspaces(ctx, workspaces); err != nil {
			m.logger.Warn("caching workspaces failed", "error", err)
		}
		return homeLoadedMsg{workspaces: workspaces}
	}
}

// fetchSummaries recomputes the badge counters with one batched call
// across every tracked scope. Full replacement, never a partial patch.
func (m Model) fetchSummaries(scopeIDs []string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		summaries, err := m.api.Summaries(ctx, scopeIDs)
		if err != nil {
			return summariesLoadedMsg{err: err}
		}
		return summariesLoadedMsg{summaries: summaries}
	}
}

// loadHistoryFromCache seeds a conversation from the local cache.
func (m Model) loadHistoryFromCache(scopeID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		messages, err := m.store.GetMessages(ctx, store.MessageFilter{ScopeID: scopeID})
		if err != nil || len(messages) == 0 {
			return nil
		}
		return historyLoadedMsg{scopeID: scopeID, messages: messages, fromCache: true}
	}
}

// fetchHistory loads a conversation's confirmed messages from the
// backend and writes them back to the cache.
func (m Model) fetchHistory(scopeID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		messages, err := m.api.Messages(ctx, scopeID)
		if err != nil {
			return historyLoadedMsg{scopeID: scopeID, err: err}
		}
		if err := m.store.UpsertMessages(ctx, messages); err != nil {
			m.logger.Warn("caching messages failed", "scope_id", scopeID, "error", err)
		}
		return historyLoadedMsg{scopeID: scopeID, messages: messages}
	}
}

// sendMessage issues the authoritative create request for an
// optimistic entry. The bounded timeout routes a hung request through
// the same rollback path as an explicit failure.
func (m Model) sendMessage(scopeID, content string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), reconcile.SendTimeout)
		defer cancel()

		message, err := m.api.CreateMessage(ctx, scopeID, content)
		if err != nil {
			return sendResultMsg{scopeID: scopeID, err: err}
		}
		if err := m.store.UpsertMessages(ctx, []model.Message{*message}); err != nil {
			m.logger.Warn("caching sent message failed", "scope_id", scopeID, "error", err)
		}
		return sendResultMsg{scopeID: scopeID, message: message}
	}
}

// loadInboxFromCache seeds a workspace inbox from the local cache.
func (m Model) loadInboxFromCache(scopeID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		notifications, err := m.store.GetNotifications(ctx, store.NotificationFilter{ScopeID: scopeID})
		if err != nil {
			return nil
		}
		approvals, err := m.store.GetApprovals(ctx, scopeID)
		if err != nil {
			return nil
		}
		if len(notifications) == 0 && len(approvals) == 0 {
			return nil
		}
		return inboxLoadedMsg{
			scopeID:       scopeID,
			notifications: notifications,
			approvals:     approvals,
			fromCache:     true,
		}
	}
}

// fetchInbox loads a workspace's notifications and approvals and
// writes them back to the cache.
func (m Model) fetchInbox(scopeID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		notifications, err := m.api.Notifications(ctx, scopeID)
		if err != nil {
			return inboxLoadedMsg{scopeID: scopeID, err: err}
		}
		approvals, err := m.api.Approvals(ctx, scopeID)
		if err != nil {
			return inboxLoadedMsg{scopeID: scopeID, err: err}
		}

		if err := m.store.UpsertNotifications(ctx, notifications); err != nil {
			m.logger.Warn("caching notifications failed", "scope_id", scopeID, "error", err)
		}
		if err := m.store.UpsertApprovals(ctx, approvals); err != nil {
			m.logger.Warn("caching approvals failed", "scope_id", scopeID, "error", err)
		}

		return inboxLoadedMsg{
			scopeID:       scopeID,
			notifications: notifications,
			approvals:     approvals,
		}
	}
}

// markRead acknowledges one notification.
func (m Model) markRead(scopeID, notificationID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		err := m.api.MarkRead(ctx, notificationID)
		return markReadDoneMsg{scopeID: scopeID, err: err}
	}
}

// markAllRead acknowledges every notification in a workspace.
func (m Model) markAllRead(scopeID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		err := m.api.MarkAllRead(ctx, scopeID)
		return markReadDoneMsg{scopeID: scopeID, err: err}
	}
}

// resolveApproval records the viewer's decision on an approval request.
func (m Model) resolveApproval(scopeID, approvalID string, approve bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		approval, err := m.api.Resolve(ctx, approvalID, approve)
		if err != nil {
			return approvalResolvedMsg{scopeID: scopeID, err: err}
		}
		return approvalResolvedMsg{scopeID: scopeID, approval: approval}
	}
}
