package channel

// Filter selects which row changes a subscription receives: one
// entity, one scope, one action class.
type Filter struct {
	Entity  Entity
	ScopeID string
	Events  Action
}

// key is the registry key for a subscription. At most one subscription
// exists per (entity, scope) pair; opening a second closes the first.
type key struct {
	entity Entity
	scope  string
}

// Status reports a subscription lifecycle transition to its owner.
type Status string

const (
	// StatusSubscribed means the server acknowledged the subscription
	// and events are flowing.
	StatusSubscribed Status = "subscribed"

	// StatusChannelError means the underlying connection failed. The
	// client reconnects on its own; dependents should revalidate by
	// fetch since events may have been missed.
	StatusChannelError Status = "channel_error"

	// StatusTimedOut means the server stopped heartbeating. Treated
	// like a connection failure.
	StatusTimedOut Status = "timed_out"

	// StatusClosed means the subscription was closed and will deliver
	// nothing further.
	StatusClosed Status = "closed"
)

// Handler receives every event delivered for one subscription. Events
// are delivered at least once; duplicates are possible and downstream
// consumers must tolerate them.
type Handler func(Event)

// StatusHandler receives subscription state transitions.
type StatusHandler func(Status)

// Subscription is an open live-update subscription. It is returned by
// Client.Subscribe and released by Close.
type Subscription struct {
	client   *Client
	key      key
	filter   Filter
	handler  Handler
	onStatus StatusHandler
	closed   bool
}

// Filter returns the filter this subscription was opened with.
func (s *Subscription) Filter() Filter {
	return s.filter
}

// Close releases the subscription. It is idempotent and always removes
// the registry entry, even when the unsubscribe frame cannot be sent
// because the connection is already down.
func (s *Subscription) Close() {
	s.client.unsubscribe(s)
}

// wants reports whether an event matches this subscription's filter.
func (s *Subscription) wants(event Event) bool {
	if event.Entity != s.filter.Entity {
		return false
	}
	if s.filter.ScopeID != "" && event.ScopeID() != s.filter.ScopeID {
		return false
	}
	if s.filter.Events != ActionAny && s.filter.Events != "" && event.Action != s.filter.Events {
		return false
	}
	return true
}
