package store

import (
	"context"
	"fmt"

	"github.com/nhle/cosync/internal/model"
)

// UpsertApprovals inserts or replaces a batch of approval requests.
// A pending request resolved elsewhere arrives as the same row with a
// terminal status.
func (s *SQLiteStore) UpsertApprovals(ctx context.Context, approvals []model.Approval) error {
	if len(approvals) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, a := range approvals {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO approvals (
				id, scope_id, approver_id, proposer_id, entity_type, status, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.ScopeID, a.ApproverID, a.ProposerID, a.EntityType, a.Status, a.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("upserting approval %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing approvals: %w", err)
	}
	return nil
}

// GetApprovals returns cached approvals, newest first. An empty scope
// ID reads across every scope.
func (s *SQLiteStore) GetApprovals(ctx context.Context, scopeID string) ([]model.Approval, error) {
	query := "SELECT * FROM approvals"
	args := []any{}
	if scopeID != "" {
		query += " WHERE scope_id = ?"
		args = append(args, scopeID)
	}
	query += " ORDER BY created_at DESC"

	var approvals []model.Approval
	if err := s.db.SelectContext(ctx, &approvals, query, args...); err != nil {
		return nil, fmt.Errorf("reading approvals: %w", err)
	}
	return approvals, nil
}
