package model

import "time"

// NotificationKind identifies what backend action produced a notification.
type NotificationKind string

const (
	KindMessageReceived   NotificationKind = "MESSAGE_RECEIVED"
	KindApprovalRequested NotificationKind = "APPROVAL_REQUESTED"
	KindApprovalCompleted NotificationKind = "APPROVAL_COMPLETED"
	KindApprovalRejected  NotificationKind = "APPROVAL_REJECTED"
)

// Notification represents an update surfaced to a user about activity
// in one of their workspaces.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id" db:"id"`

	// ScopeID identifies the workspace the activity happened in.
	ScopeID string `json:"scope_id" db:"scope_id"`

	// RecipientID is the user this notification is addressed to.
	RecipientID string `json:"recipient_id" db:"recipient_id"`

	// Kind identifies the originating backend action.
	Kind NotificationKind `json:"kind" db:"kind"`

	// ReadAt is when the recipient acknowledged the notification.
	// Nil means unread.
	ReadAt *time.Time `json:"read_at" db:"read_at"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Unread reports whether the notification has not been acknowledged.
func (n Notification) Unread() bool {
	return n.ReadAt == nil
}
