package app

import (
	"github.com/nhle/cosync/internal/channel"
	"github.com/nhle/cosync/internal/model"
)

// channelEventMsg carries one decoded realtime event into the update
// loop. All reconciler and aggregator mutation happens there, never on
// the channel goroutine.
type channelEventMsg struct {
	event channel.Event
}

// channelStatusMsg carries a subscription lifecycle transition into
// the update loop.
type channelStatusMsg struct {
	filter channel.Filter
	status channel.Status
}

// homeLoadedMsg delivers the workspace directory. fromCache marks the
// instant local seed; the authoritative fetch follows and replaces it.
// A cache seed also carries the cached notification and approval rows
// so badges render before (or without) the first summary fetch.
type homeLoadedMsg struct {
	workspaces    []model.Workspace
	notifications []model.Notification
	approvals     []model.Approval
	fromCache     bool
	err           error
}

// summariesLoadedMsg delivers a batched summary recompute result.
type summariesLoadedMsg struct {
	summaries map[string]model.ScopeSummary
	err       error
}

// homeRevalidatedMsg delivers the combined workspace + summary
// re-fetch run by the revalidator.
type homeRevalidatedMsg struct {
	workspaces []model.Workspace
	summaries  map[string]model.ScopeSummary
	err        error
}

// historyLoadedMsg delivers a conversation history fetch. The scope ID
// is the stale-response guard: results for a scope the user has left
// are dropped on arrival.
type historyLoadedMsg struct {
	scopeID   string
	messages  []model.Message
	fromCache bool
	err       error
}

// sendResultMsg delivers the outcome of a message create request.
type sendResultMsg struct {
	scopeID string
	message *model.Message
	err     error
}

// inboxLoadedMsg delivers a workspace inbox fetch.
type inboxLoadedMsg struct {
	scopeID       string
	notifications []model.Notification
	approvals     []model.Approval
	fromCache     bool
	err           error
}

// markReadDoneMsg delivers the outcome of a mark-read call.
type markReadDoneMsg struct {
	scopeID string
	err     error
}

// approvalResolvedMsg delivers the outcome of an approve/reject call.
type approvalResolvedMsg struct {
	scopeID  string
	approval *model.Approval
	err      error
}
