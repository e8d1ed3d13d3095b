package store

import (
	"context"

	"github.com/nhle/cosync/internal/model"
)

// MessageFilter controls filtering and pagination for cached message
// reads.
type MessageFilter struct {
	ScopeID string
	Limit   int
	Offset  int
}

// NotificationFilter controls filtering for cached notification reads.
type NotificationFilter struct {
	ScopeID    string
	UnreadOnly bool
	Limit      int
}

// Store is the local read cache. The client seeds each view from it so
// something renders instantly (and offline), then replaces the view
// with the first authoritative fetch and writes the fetched rows back.
type Store interface {
	// === Messages ===

	UpsertMessages(ctx context.Context, messages []model.Message) error
	GetMessages(ctx context.Context, filter MessageFilter) ([]model.Message, error)

	// === Notifications ===

	UpsertNotifications(ctx context.Context, notifications []model.Notification) error
	GetNotifications(ctx context.Context, filter NotificationFilter) ([]model.Notification, error)

	// === Approvals ===

	UpsertApprovals(ctx context.Context, approvals []model.Approval) error
	GetApprovals(ctx context.Context, scopeID string) ([]model.Approval, error)

	// === Workspaces ===

	UpsertWorkspaces(ctx context.Context, workspaces []model.Workspace) error
	GetWorkspaces(ctx context.Context) ([]model.Workspace, error)
}
