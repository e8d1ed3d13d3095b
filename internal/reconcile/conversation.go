// Package reconcile merges the three sources of truth for one open
// conversation (locally-created optimistic entries, the create
// request's direct response, and rows echoed over the realtime
// channel) into a single ordered message list with no duplicates.
//
// Conversation is a plain state machine: no goroutines, no locks. The
// application drives it from its event loop, so the ordering races
// between a create response and its channel echo reduce to "whichever
// method gets called first", and both orders are handled.
package reconcile

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/cosync/internal/model"
)

// matchWindow bounds how long after a send a channel-delivered row may
// still be matched against the pending optimistic entry by sender and
// content equality. Outside the window an identical row is treated as
// an unrelated new message, so repeated identical content cannot be
// misattributed as the confirmation.
const matchWindow = 10 * time.Second

// SendTimeout bounds the create request. Expiry routes through the
// same rollback path as an explicit failure, so a hung request cannot
// leave its optimistic entry pending forever.
const SendTimeout = 15 * time.Second

// Entry is one renderable row of the conversation. DayStart marks the
// first message of each calendar day; the view renders a date
// boundary above it.
type Entry struct {
	Message  model.Message
	DayStart bool
}

// Conversation owns the message list for one scope. Exactly one
// conversation is active at a time; the hosting view creates it on
// entry and discards it on exit.
type Conversation struct {
	scopeID  string
	viewerID string
	messages []model.Message

	// One send may be in flight per scope. The busy flag (not a lock)
	// enforces it; all mutation happens on the event loop.
	inFlight       bool
	pendingID      string
	pendingContent string
	pendingAt      time.Time
}

// NewConversation creates the reconciler state for one scope.
func NewConversation(scopeID, viewerID string) *Conversation {
	return &Conversation{
		scopeID:  scopeID,
		viewerID: viewerID,
	}
}

// ScopeID returns the scope this conversation belongs to.
func (c *Conversation) ScopeID() string {
	return c.scopeID
}

// InFlight reports whether a send is awaiting its create response.
func (c *Conversation) InFlight() bool {
	return c.inFlight
}

// SetHistory replaces the confirmed message list with a fresh fetch
// result. A pending optimistic entry survives the replacement: the
// fetch was issued before the backend knew about it.
func (c *Conversation) SetHistory(messages []model.Message) {
	var pending *model.Message
	if c.pendingID != "" {
		for i := range c.messages {
			if c.messages[i].ID == c.pendingID {
				pending = &c.messages[i]
				break
			}
		}
	}

	c.messages = make([]model.Message, 0, len(messages)+1)
	for _, message := range messages {
		message.Status = model.MessageConfirmed
		c.messages = append(c.messages, message)
	}
	if pending != nil {
		c.messages = append(c.messages, *pending)
	}
}

// Send appends a pending optimistic entry for the given content and
// returns it. The boolean is false, and nothing changes, when the
// trimmed content is empty or another send is still in flight; both
// are silent no-ops.
func (c *Conversation) Send(content string, now time.Time) (model.Message, bool) {
	content = strings.TrimSpace(content)
	if content == "" || c.inFlight {
		return model.Message{}, false
	}

	pending := model.Message{
		ID:        uuid.NewString(),
		ScopeID:   c.scopeID,
		SenderID:  c.viewerID,
		Content:   content,
		CreatedAt: now,
		Status:    model.MessagePending,
	}
	c.messages = append(c.messages, pending)
	c.inFlight = true
	c.pendingID = pending.ID
	c.pendingContent = content
	c.pendingAt = now
	return pending, true
}

// ResolveSend applies the create request's direct response. When the
// pending entry is still present it is replaced in place (matched by
// local ID); when the channel echo already replaced it, the confirmed
// ID is deduplicated instead. Either way the in-flight send completes.
func (c *Conversation) ResolveSend(confirmed model.Message) {
	confirmed.Status = model.MessageConfirmed

	if c.pendingID != "" {
		for i := range c.messages {
			if c.messages[i].ID == c.pendingID {
				c.messages[i] = confirmed
				c.clearSend()
				return
			}
		}
	}

	// Pending entry already gone: the channel echo won the race. Only
	// append if this confirmed ID is genuinely unknown.
	if !c.contains(confirmed.ID) {
		c.messages = append(c.messages, confirmed)
	}
	c.clearSend()
}

// FailSend rolls back the pending entry after a failed or timed-out
// create request and returns the attempted content so the view can
// restore it into the input field. Local rollback only, no retry.
func (c *Conversation) FailSend() string {
	content := ""
	if c.pendingID != "" {
		for i := range c.messages {
			if c.messages[i].ID == c.pendingID {
				c.messages = append(c.messages[:i], c.messages[i+1:]...)
				content = c.pendingContent
				break
			}
		}
	}
	c.clearSend()
	return content
}

// ApplyEvent merges one channel-delivered message. The channel payload
// knows nothing of local temporary IDs, so a row from the viewer that
// matches the pending entry's content inside the match window replaces
// it in place. Rows whose confirmed ID is already known are dropped
// (at-least-once delivery), and everything else appends in arrival
// order. A row that matches no known entry is not an error.
func (c *Conversation) ApplyEvent(message model.Message, now time.Time) {
	if message.ScopeID != c.scopeID {
		return
	}
	message.Status = model.MessageConfirmed

	if c.contains(message.ID) {
		return
	}

	if c.pendingID != "" &&
		message.SenderID == c.viewerID &&
		message.Content == c.pendingContent &&
		now.Sub(c.pendingAt) <= matchWindow {
		for i := range c.messages {
			if c.messages[i].ID == c.pendingID {
				c.messages[i] = message
				// The create request is still outstanding; its
				// response deduplicates against this ID. Only the
				// entry stops being pending.
				c.pendingID = ""
				return
			}
		}
	}

	c.messages = append(c.messages, message)
}

// Entries returns the conversation in insertion order of the merged
// stream, with day-boundary markers computed against each entry's
// predecessor.
func (c *Conversation) Entries() []Entry {
	entries := make([]Entry, len(c.messages))
	for i, message := range c.messages {
		dayStart := i == 0 || !model.SameDay(c.messages[i-1].CreatedAt, message.CreatedAt)
		entries[i] = Entry{Message: message, DayStart: dayStart}
	}
	return entries
}

// Messages returns a copy of the current message list.
func (c *Conversation) Messages() []model.Message {
	out := make([]model.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of entries in the conversation.
func (c *Conversation) Len() int {
	return len(c.messages)
}

func (c *Conversation) contains(id string) bool {
	for i := range c.messages {
		if c.messages[i].ID == id {
			return true
		}
	}
	return false
}

func (c *Conversation) clearSend() {
	c.inFlight = false
	c.pendingID = ""
	c.pendingContent = ""
	c.pendingAt = time.Time{}
}
