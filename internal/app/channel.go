package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/cosync/internal/channel"
)

// waitForChannelEvent returns the subscription command that feeds
// decoded channel events and status transitions into the Bubble Tea
// runtime. Re-armed after every delivery.
func (m Model) waitForChannelEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.eventCh
	}
}

// forward bridges a channel callback (invoked on the channel client's
// goroutine) onto the update loop. The buffered channel absorbs event
// bursts; when it fills, the send blocks, applying backpressure to the
// read pump rather than dropping events.
func (m Model) forward(msg tea.Msg) {
	m.eventCh <- msg
}

// subscribe opens one subscription with the standard bridging handlers.
func (m Model) subscribe(filter channel.Filter) (*channel.Subscription, error) {
	return m.chann.Subscribe(filter,
		func(event channel.Event) {
			m.forward(channelEventMsg{event: event})
		},
		func(status channel.Status) {
			m.forward(channelStatusMsg{filter: filter, status: status})
		},
	)
}

// openHomeSubs opens the notification and approval subscriptions that
// drive the workspace-list badges. The backend scopes delivery to the
// authenticated viewer, so these watch all of the viewer's scopes.
func (m *Model) openHomeSubs() {
	if m.notifSub == nil {
		sub, err := m.subscribe(channel.Filter{
			Entity: channel.EntityNotifications,
			Events: channel.ActionAny,
		})
		if err != nil {
			m.logger.Warn("opening notification subscription failed", "error", err)
		} else {
			m.notifSub = sub
		}
	}
	if m.apprSub == nil {
		sub, err := m.subscribe(channel.Filter{
			Entity: channel.EntityApprovals,
			Events: channel.ActionAny,
		})
		if err != nil {
			m.logger.Warn("opening approval subscription failed", "error", err)
		} else {
			m.apprSub = sub
		}
	}
}

// closeHomeSubs releases the badge subscriptions.
func (m *Model) closeHomeSubs() {
	if m.notifSub != nil {
		m.notifSub.Close()
		m.notifSub = nil
	}
	if m.apprSub != nil {
		m.apprSub.Close()
		m.apprSub = nil
	}
}

// openConversationSub opens the per-scope message subscription for an
// entered conversation. The subscription manager closes any prior
// subscription for the same (entity, scope) pair on its own; the prior
// view's handle is also dropped here so nothing leaks.
func (m *Model) openConversationSub(scopeID string) {
	if m.msgSub != nil {
		m.msgSub.Close()
		m.msgSub = nil
	}
	sub, err := m.subscribe(channel.Filter{
		Entity:  channel.EntityMessages,
		ScopeID: scopeID,
		Events:  channel.ActionInsert,
	})
	if err != nil {
		m.logger.Warn("opening message subscription failed", "scope_id", scopeID, "error", err)
		return
	}
	m.msgSub = sub
}

// closeConversationSub releases the message subscription when the
// conversation view closes. Runs before the view state is discarded so
// teardown can never leave the subscription behind.
func (m *Model) closeConversationSub() {
	if m.msgSub != nil {
		m.msgSub.Close()
		m.msgSub = nil
	}
}
