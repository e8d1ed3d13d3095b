package channel

import (
	"encoding/json"
	"fmt"

	"github.com/nhle/cosync/internal/model"
)

// Entity names a backend table exposed over the realtime channel.
type Entity string

const (
	EntityMessages      Entity = "messages"
	EntityNotifications Entity = "notifications"
	EntityApprovals     Entity = "approvals"
)

// Action is the class of row change a subscription listens for.
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionAny    Action = "*"
)

// Event is one decoded row change delivered to a subscription handler.
// The payload is decoded at the channel boundary into exactly one of
// the typed variants, keyed by Entity; raw row maps never reach the
// rest of the application.
type Event struct {
	Entity Entity
	Action Action

	// Exactly one of the following is non-nil, matching Entity.
	Message      *model.Message
	Notification *model.Notification
	Approval     *model.Approval
}

// ScopeID returns the scope of the row carried by the event.
func (e Event) ScopeID() string {
	switch {
	case e.Message != nil:
		return e.Message.ScopeID
	case e.Notification != nil:
		return e.Notification.ScopeID
	case e.Approval != nil:
		return e.Approval.ScopeID
	}
	return ""
}

// decodeEvent turns a raw wire frame into a typed Event. Unknown
// entities and malformed payloads are errors; the caller logs and
// drops them so a bad row never reaches a handler as an untyped blob.
func decodeEvent(entity Entity, action Action, payload json.RawMessage) (Event, error) {
	event := Event{Entity: entity, Action: action}

	switch entity {
	case EntityMessages:
		var message model.Message
		if err := json.Unmarshal(payload, &message); err != nil {
			return Event{}, fmt.Errorf("decoding message payload: %w", err)
		}
		// Rows arriving over the channel are server-confirmed by
		// definition; the status field is local-only.
		message.Status = model.MessageConfirmed
		event.Message = &message

	case EntityNotifications:
		var notification model.Notification
		if err := json.Unmarshal(payload, &notification); err != nil {
			return Event{}, fmt.Errorf("decoding notification payload: %w", err)
		}
		event.Notification = &notification

	case EntityApprovals:
		var approval model.Approval
		if err := json.Unmarshal(payload, &approval); err != nil {
			return Event{}, fmt.Errorf("decoding approval payload: %w", err)
		}
		event.Approval = &approval

	default:
		return Event{}, fmt.Errorf("unknown channel entity %q", entity)
	}

	return event, nil
}
