package store

import (
	"context"
	"fmt"

	"github.com/nhle/cosync/internal/model"
)

// UpsertNotifications inserts or replaces a batch of notifications.
// Replacement matters: a mark-read on another device arrives as the
// same row with read_at set.
func (s *SQLiteStore) UpsertNotifications(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, n := range notifications {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO notifications (
				id, scope_id, recipient_id, kind, read_at, created_at
			) VALUES (?, ?, ?, ?, ?, ?)`,
			n.ID, n.ScopeID, n.RecipientID, n.Kind, n.ReadAt, n.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("upserting notification %s: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing notifications: %w", err)
	}
	return nil
}

// GetNotifications returns cached notifications, newest first.
func (s *SQLiteStore) GetNotifications(ctx context.Context, filter NotificationFilter) ([]model.Notification, error) {
	query := "SELECT * FROM notifications WHERE 1=1"
	args := []any{}

	if filter.ScopeID != "" {
		query += " AND scope_id = ?"
		args = append(args, filter.ScopeID)
	}
	if filter.UnreadOnly {
		query += " AND read_at IS NULL"
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var notifications []model.Notification
	if err := s.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("reading notifications: %w", err)
	}
	return notifications, nil
}
