package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/cosync/internal/model"
	"github.com/nhle/cosync/internal/store"
	"github.com/nhle/cosync/tests/testutil"
)

var cacheTime = time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC)

func TestWorkspaceRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	workspaces := []model.Workspace{
		{ID: "scope-2", Name: "Beta", PartnerName: "Ben", CreatedAt: cacheTime},
		{ID: "scope-1", Name: "Alpha", PartnerName: "Ana", CreatedAt: cacheTime},
	}
	require.NoError(t, s.UpsertWorkspaces(ctx, workspaces))

	got, err := s.GetWorkspaces(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Directory order is by name.
	assert.Equal(t, "Alpha", got[0].Name)
	assert.Equal(t, "Beta", got[1].Name)

	// Re-upserting the same IDs replaces rather than duplicates.
	workspaces[0].PartnerName = "Bea"
	require.NoError(t, s.UpsertWorkspaces(ctx, workspaces))
	got, err = s.GetWorkspaces(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Bea", got[1].PartnerName)
}

func TestMessagesRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	messages := []model.Message{
		{ID: "srv-2", ScopeID: "scope-1", SenderID: "user-2", Content: "second", CreatedAt: cacheTime.Add(time.Minute), Status: model.MessageConfirmed},
		{ID: "srv-1", ScopeID: "scope-1", SenderID: "user-1", Content: "first", CreatedAt: cacheTime, Status: model.MessageConfirmed},
		{ID: "srv-3", ScopeID: "scope-other", SenderID: "user-1", Content: "elsewhere", CreatedAt: cacheTime, Status: model.MessageConfirmed},
	}
	require.NoError(t, s.UpsertMessages(ctx, messages))

	got, err := s.GetMessages(ctx, store.MessageFilter{ScopeID: "scope-1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Conversation order is oldest first.
	assert.Equal(t, "srv-1", got[0].ID)
	assert.Equal(t, "srv-2", got[1].ID)
}

func TestMessagesPagination(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	var messages []model.Message
	for i := 0; i < 5; i++ {
		messages = append(messages, model.Message{
			ID:        string(rune('a' + i)),
			ScopeID:   "scope-1",
			SenderID:  "user-1",
			Content:   "msg",
			CreatedAt: cacheTime.Add(time.Duration(i) * time.Minute),
			Status:    model.MessageConfirmed,
		})
	}
	require.NoError(t, s.UpsertMessages(ctx, messages))

	got, err := s.GetMessages(ctx, store.MessageFilter{ScopeID: "scope-1", Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestPendingMessagesAreNeverCached(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMessages(ctx, []model.Message{
		{ID: "local-1", ScopeID: "scope-1", SenderID: "user-1", Content: "optimistic", CreatedAt: cacheTime, Status: model.MessagePending},
		{ID: "srv-1", ScopeID: "scope-1", SenderID: "user-1", Content: "confirmed", CreatedAt: cacheTime, Status: model.MessageConfirmed},
	}))

	got, err := s.GetMessages(ctx, store.MessageFilter{ScopeID: "scope-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "srv-1", got[0].ID)
}

func TestNotificationsRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	readAt := cacheTime.Add(time.Hour)
	notifications := []model.Notification{
		{ID: "n1", ScopeID: "scope-1", RecipientID: "user-1", Kind: model.KindMessageReceived, CreatedAt: cacheTime},
		{ID: "n2", ScopeID: "scope-1", RecipientID: "user-1", Kind: model.KindApprovalRequested, ReadAt: &readAt, CreatedAt: cacheTime.Add(time.Minute)},
	}
	require.NoError(t, s.UpsertNotifications(ctx, notifications))

	got, err := s.GetNotifications(ctx, store.NotificationFilter{ScopeID: "scope-1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Newest first.
	assert.Equal(t, "n2", got[0].ID)
	require.NotNil(t, got[0].ReadAt)
	assert.False(t, got[0].Unread())
	assert.True(t, got[1].Unread())

	unread, err := s.GetNotifications(ctx, store.NotificationFilter{ScopeID: "scope-1", UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "n1", unread[0].ID)
}

func TestNotificationUpsertAppliesRemoteMarkRead(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	n := model.Notification{ID: "n1", ScopeID: "scope-1", RecipientID: "user-1", Kind: model.KindMessageReceived, CreatedAt: cacheTime}
	require.NoError(t, s.UpsertNotifications(ctx, []model.Notification{n}))

	// The same row arrives again with read_at set, as after a
	// mark-read on another device.
	readAt := cacheTime.Add(time.Hour)
	n.ReadAt = &readAt
	require.NoError(t, s.UpsertNotifications(ctx, []model.Notification{n}))

	got, err := s.GetNotifications(ctx, store.NotificationFilter{ScopeID: "scope-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Unread())
}

func TestApprovalsRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	approvals := []model.Approval{
		{ID: "a1", ScopeID: "scope-1", ApproverID: "user-1", ProposerID: "user-2", EntityType: "listing", Status: model.ApprovalPending, CreatedAt: cacheTime},
	}
	require.NoError(t, s.UpsertApprovals(ctx, approvals))

	got, err := s.GetApprovals(ctx, "scope-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.ApprovalPending, got[0].Status)

	// A resolution elsewhere arrives as the same row, terminal status.
	approvals[0].Status = model.ApprovalApproved
	require.NoError(t, s.UpsertApprovals(ctx, approvals))

	got, err = s.GetApprovals(ctx, "scope-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.ApprovalApproved, got[0].Status)
}

func TestGetApprovalsAcrossScopes(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertApprovals(ctx, []model.Approval{
		{ID: "a1", ScopeID: "scope-1", ApproverID: "user-1", ProposerID: "user-2", EntityType: "listing", Status: model.ApprovalPending, CreatedAt: cacheTime},
		{ID: "a2", ScopeID: "scope-2", ApproverID: "user-1", ProposerID: "user-2", EntityType: "goal", Status: model.ApprovalPending, CreatedAt: cacheTime.Add(time.Minute)},
	}))

	// The badge fold reads every scope at once.
	got, err := s.GetApprovals(ctx, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a2", got[0].ID)

	got, err = s.GetApprovals(ctx, "scope-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
}
