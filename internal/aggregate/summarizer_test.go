package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/cosync/internal/model"
)

func unread(id, scopeID, recipientID string) model.Notification {
	return model.Notification{
		ID:          id,
		ScopeID:     scopeID,
		RecipientID: recipientID,
		Kind:        model.KindMessageReceived,
		CreatedAt:   time.Now(),
	}
}

func read(id, scopeID, recipientID string) model.Notification {
	n := unread(id, scopeID, recipientID)
	at := time.Now()
	n.ReadAt = &at
	return n
}

func pendingApproval(id, scopeID, approverID string) model.Approval {
	return model.Approval{
		ID:         id,
		ScopeID:    scopeID,
		ApproverID: approverID,
		ProposerID: "someone-else",
		EntityType: "listing",
		Status:     model.ApprovalPending,
		CreatedAt:  time.Now(),
	}
}

func TestRecompute(t *testing.T) {
	s := NewSummarizer("user-1")
	s.SetTracked([]string{"scope-1", "scope-2"})

	notifications := []model.Notification{
		unread("n1", "scope-1", "user-1"),
		unread("n2", "scope-1", "user-1"),
		read("n3", "scope-1", "user-1"),     // read rows never count
		unread("n4", "scope-1", "user-2"),   // other recipient
		unread("n5", "scope-9", "user-1"),   // untracked scope
		unread("n6", "scope-2", "user-1"),
	}
	approvals := []model.Approval{
		pendingApproval("a1", "scope-1", "user-1"),
		pendingApproval("a2", "scope-1", "user-2"), // other approver
		{ID: "a3", ScopeID: "scope-1", ApproverID: "user-1", Status: model.ApprovalApproved},
	}

	s.Recompute(notifications, approvals)

	badge, ok := s.Badge("scope-1")
	require.True(t, ok)
	assert.Equal(t, 2, badge.UnreadUpdates)
	assert.Equal(t, 1, badge.PendingApprovals)

	badge, ok = s.Badge("scope-2")
	require.True(t, ok)
	assert.Equal(t, 1, badge.UnreadUpdates)
	assert.Equal(t, 0, badge.PendingApprovals)

	_, ok = s.Badge("scope-9")
	assert.False(t, ok)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	s := NewSummarizer("user-1")
	s.SetTracked([]string{"scope-1"})

	// A redelivered row shares its ID and must count once.
	notifications := []model.Notification{
		unread("n1", "scope-1", "user-1"),
		unread("n1", "scope-1", "user-1"),
	}

	s.Recompute(notifications, nil)
	first := s.Summaries()

	badge, ok := s.Badge("scope-1")
	require.True(t, ok)
	assert.Equal(t, 1, badge.UnreadUpdates)

	s.Recompute(notifications, nil)
	assert.Equal(t, first, s.Summaries())
}

func TestRecomputeAfterApprovalResolved(t *testing.T) {
	s := NewSummarizer("approver-1")
	s.SetTracked([]string{"scope-1"})

	s.Recompute(nil, []model.Approval{pendingApproval("a1", "scope-1", "approver-1")})
	badge, ok := s.Badge("scope-1")
	require.True(t, ok)
	assert.Equal(t, 1, badge.PendingApprovals)

	// The approver acts. On the next pass the row comes back resolved,
	// so their badge clears.
	resolved := pendingApproval("a1", "scope-1", "approver-1")
	resolved.Status = model.ApprovalApproved
	s.Recompute(nil, []model.Approval{resolved})
	_, ok = s.Badge("scope-1")
	assert.False(t, ok)

	// On the proposer's side the same resolution lands as an unread
	// completion notice.
	p := NewSummarizer("someone-else")
	p.SetTracked([]string{"scope-1"})

	done := unread("n-done", "scope-1", "someone-else")
	done.Kind = model.KindApprovalCompleted
	p.Recompute([]model.Notification{done}, []model.Approval{resolved})

	badge, ok = p.Badge("scope-1")
	require.True(t, ok)
	assert.Equal(t, 1, badge.UnreadUpdates)
	assert.Equal(t, 0, badge.PendingApprovals)
}

func TestBadgeOmittedWhenEmpty(t *testing.T) {
	s := NewSummarizer("user-1")
	s.SetTracked([]string{"scope-1"})

	s.Recompute([]model.Notification{unread("n1", "scope-1", "user-1")}, nil)
	_, ok := s.Badge("scope-1")
	require.True(t, ok)

	// Everything read: the badge disappears rather than showing zeros.
	s.Recompute([]model.Notification{read("n1", "scope-1", "user-1")}, nil)
	_, ok = s.Badge("scope-1")
	assert.False(t, ok)
	assert.Empty(t, s.Summaries())
}

func TestSetSummaries(t *testing.T) {
	s := NewSummarizer("user-1")
	s.SetTracked([]string{"scope-1", "scope-2"})

	s.SetSummaries(map[string]model.ScopeSummary{
		"scope-1": {UnreadUpdates: 3},
		"scope-2": {},                    // empty, discarded
		"scope-9": {UnreadUpdates: 7},    // untracked, discarded
	})

	badge, ok := s.Badge("scope-1")
	require.True(t, ok)
	assert.Equal(t, 3, badge.UnreadUpdates)
	assert.Equal(t, "scope-1", badge.ScopeID)

	_, ok = s.Badge("scope-2")
	assert.False(t, ok)
	_, ok = s.Badge("scope-9")
	assert.False(t, ok)
}

func TestSetTrackedDropsRemovedScopes(t *testing.T) {
	s := NewSummarizer("user-1")
	s.SetTracked([]string{"scope-1", "scope-2"})
	s.SetSummaries(map[string]model.ScopeSummary{
		"scope-1": {UnreadUpdates: 1},
		"scope-2": {UnreadUpdates: 2},
	})

	s.SetTracked([]string{"scope-2"})

	_, ok := s.Badge("scope-1")
	assert.False(t, ok)
	badge, ok := s.Badge("scope-2")
	require.True(t, ok)
	assert.Equal(t, 2, badge.UnreadUpdates)
	assert.False(t, s.Tracks("scope-1"))
	assert.Equal(t, []string{"scope-2"}, s.TrackedScopes())
}

func TestMarkReadLocal(t *testing.T) {
	s := NewSummarizer("user-1")
	s.SetTracked([]string{"scope-1"})
	s.SetSummaries(map[string]model.ScopeSummary{
		"scope-1": {UnreadUpdates: 2, PendingApprovals: 1},
	})

	s.MarkReadLocal("scope-1", 1)
	badge, ok := s.Badge("scope-1")
	require.True(t, ok)
	assert.Equal(t, 1, badge.UnreadUpdates)

	// Decrementing past zero clamps.
	s.MarkReadLocal("scope-1", 5)
	badge, ok = s.Badge("scope-1")
	require.True(t, ok)
	assert.Equal(t, 0, badge.UnreadUpdates)
	assert.Equal(t, 1, badge.PendingApprovals)
}

func TestMarkAllReadLocalRemovesEmptyBadge(t *testing.T) {
	s := NewSummarizer("user-1")
	s.SetTracked([]string{"scope-1"})
	s.SetSummaries(map[string]model.ScopeSummary{
		"scope-1": {UnreadUpdates: 4},
	})

	s.MarkAllReadLocal("scope-1")
	_, ok := s.Badge("scope-1")
	assert.False(t, ok)
}

func TestResolveApprovalLocal(t *testing.T) {
	s := NewSummarizer("user-1")
	s.SetTracked([]string{"scope-1"})
	s.SetSummaries(map[string]model.ScopeSummary{
		"scope-1": {PendingApprovals: 1},
	})

	s.ResolveApprovalLocal("scope-1")
	_, ok := s.Badge("scope-1")
	assert.False(t, ok)

	// A scope with no summary is a no-op, not a panic.
	s.ResolveApprovalLocal("scope-9")
}
