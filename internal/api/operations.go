package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/nhle/cosync/internal/model"
)

// Viewer is the authenticated caller's identity as reported by the
// backend. Identity lookup itself is the backend's concern; the client
// only consumes the result.
type Viewer struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Me returns the identity behind the configured token.
func (c *Client) Me(ctx context.Context) (*Viewer, error) {
	var viewer Viewer
	if err := c.get(ctx, "/api/me", &viewer); err != nil {
		return nil, fmt.Errorf("fetching viewer identity: %w", err)
	}
	return &viewer, nil
}

// Workspaces returns all workspaces the viewer is a member of.
func (c *Client) Workspaces(ctx context.Context) ([]model.Workspace, error) {
	var workspaces []model.Workspace
	if err := c.get(ctx, "/api/workspaces", &workspaces); err != nil {
		return nil, fmt.Errorf("fetching workspaces: %w", err)
	}
	return workspaces, nil
}

// Messages returns the confirmed messages of one conversation, ordered
// oldest first.
func (c *Client) Messages(ctx context.Context, scopeID string) ([]model.Message, error) {
	var messages []model.Message
	path := "/api/scopes/" + url.PathEscape(scopeID) + "/messages"
	if err := c.get(ctx, path, &messages); err != nil {
		return nil, fmt.Errorf("fetching messages for scope %s: %w", scopeID, err)
	}
	for i := range messages {
		messages[i].Status = model.MessageConfirmed
	}
	return messages, nil
}

// CreateMessage posts a new message and returns the backend-confirmed
// row, including its authoritative ID and timestamp.
func (c *Client) CreateMessage(ctx context.Context, scopeID, content string) (*model.Message, error) {
	var created model.Message
	path := "/api/scopes/" + url.PathEscape(scopeID) + "/messages"
	body := map[string]string{"content": content}
	if err := c.post(ctx, path, body, &created); err != nil {
		return nil, fmt.Errorf("creating message in scope %s: %w", scopeID, err)
	}
	created.Status = model.MessageConfirmed
	return &created, nil
}

// Notifications returns the viewer's notifications for one workspace,
// newest first.
func (c *Client) Notifications(ctx context.Context, scopeID string) ([]model.Notification, error) {
	var notifications []model.Notification
	path := "/api/scopes/" + url.PathEscape(scopeID) + "/notifications"
	if err := c.get(ctx, path, &notifications); err != nil {
		return nil, fmt.Errorf("fetching notifications for scope %s: %w", scopeID, err)
	}
	return notifications, nil
}

// Summaries returns the derived activity counters for the given
// scopes in one batched call, keyed by scope ID. Scopes with no
// activity are absent from the result.
func (c *Client) Summaries(ctx context.Context, scopeIDs []string) (map[string]model.ScopeSummary, error) {
	if len(scopeIDs) == 0 {
		return map[string]model.ScopeSummary{}, nil
	}
	summaries := make(map[string]model.ScopeSummary)
	path := "/api/summaries?scope_ids=" + url.QueryEscape(strings.Join(scopeIDs, ","))
	if err := c.get(ctx, path, &summaries); err != nil {
		return nil, fmt.Errorf("fetching summaries: %w", err)
	}
	return summaries, nil
}

// MarkRead acknowledges a single notification.
func (c *Client) MarkRead(ctx context.Context, notificationID string) error {
	path := "/api/notifications/" + url.PathEscape(notificationID) + "/read"
	if err := c.post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("marking notification %s read: %w", notificationID, err)
	}
	return nil
}

// MarkAllRead acknowledges every notification in one workspace.
func (c *Client) MarkAllRead(ctx context.Context, scopeID string) error {
	path := "/api/scopes/" + url.PathEscape(scopeID) + "/notifications/read-all"
	if err := c.post(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("marking scope %s notifications read: %w", scopeID, err)
	}
	return nil
}

// Approvals returns the approval requests for one workspace.
func (c *Client) Approvals(ctx context.Context, scopeID string) ([]model.Approval, error) {
	var approvals []model.Approval
	path := "/api/scopes/" + url.PathEscape(scopeID) + "/approvals"
	if err := c.get(ctx, path, &approvals); err != nil {
		return nil, fmt.Errorf("fetching approvals for scope %s: %w", scopeID, err)
	}
	return approvals, nil
}

// Resolve records the viewer's decision on a pending approval. The
// transition is one-way; the backend rejects decisions on requests
// already in a terminal state.
func (c *Client) Resolve(ctx context.Context, approvalID string, approve bool) (*model.Approval, error) {
	action := "reject"
	if approve {
		action = "approve"
	}
	var resolved model.Approval
	path := "/api/approvals/" + url.PathEscape(approvalID) + "/" + action
	if err := c.post(ctx, path, nil, &resolved); err != nil {
		return nil, fmt.Errorf("resolving approval %s: %w", approvalID, err)
	}
	return &resolved, nil
}
