package store

import (
	"context"
	"fmt"

	"github.com/nhle/cosync/internal/model"
)

// UpsertMessages inserts or replaces a batch of confirmed messages.
// Pending messages are never cached: they exist only in the live
// conversation state and would otherwise survive a restart as ghosts.
func (s *SQLiteStore) UpsertMessages(ctx context.Context, messages []model.Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range messages {
		if m.Status != model.MessageConfirmed {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO messages (
				id, scope_id, sender_id, content, created_at, status
			) VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, m.ScopeID, m.SenderID, m.Content, m.CreatedAt, m.Status,
		)
		if err != nil {
			return fmt.Errorf("upserting message %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing messages: %w", err)
	}
	return nil
}

// GetMessages returns cached messages for a scope, oldest first.
func (s *SQLiteStore) GetMessages(ctx context.Context, filter MessageFilter) ([]model.Message, error) {
	query := "SELECT * FROM messages WHERE scope_id = ? ORDER BY created_at"
	args := []any{filter.ScopeID}

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	var messages []model.Message
	if err := s.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, fmt.Errorf("reading messages for scope %s: %w", filter.ScopeID, err)
	}
	return messages, nil
}
