package model

import "time"

// MessageStatus tracks where a message is in its send lifecycle.
type MessageStatus string

const (
	// MessagePending is a locally-created message that has not been
	// confirmed by the backend yet. Pending messages carry a
	// locally-generated ID and are never persisted remotely.
	MessagePending MessageStatus = "pending"

	// MessageConfirmed is a message the backend has accepted and
	// assigned its authoritative ID.
	MessageConfirmed MessageStatus = "confirmed"

	// MessageFailed is a message whose create request was rejected.
	// Failed messages are removed from the view during rollback.
	MessageFailed MessageStatus = "failed"
)

// Message is a single chat message within a workspace conversation.
type Message struct {
	// ID is the message identifier. For pending messages this is a
	// locally-generated UUID; confirmation replaces it with the
	// backend-assigned ID.
	ID string `json:"id" db:"id"`

	// ScopeID identifies the conversation this message belongs to.
	ScopeID string `json:"scope_id" db:"scope_id"`

	// SenderID is the user who sent the message.
	SenderID string `json:"sender_id" db:"sender_id"`

	// Content is the message body.
	Content string `json:"content" db:"content"`

	// CreatedAt is when the message was created. For pending messages
	// this is the local send time; confirmation replaces it with the
	// backend timestamp.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Status is the local send-lifecycle state. It is never sent to or
	// received from the backend; rows arriving over the wire are
	// always confirmed.
	Status MessageStatus `json:"-" db:"status"`
}

// Pending reports whether the message is still awaiting confirmation.
func (m Message) Pending() bool {
	return m.Status == MessagePending
}

// SameDay reports whether two messages fall on the same calendar day
// in local time. Used to compute date-boundary markers between
// consecutive entries in a conversation.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
