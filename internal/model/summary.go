package model

// ScopeSummary is the derived per-workspace activity counters shown as
// badges in the workspace list. It is a pure fold over the
// notification and approval sets for one scope, never an independent
// counter that can drift.
type ScopeSummary struct {
	// ScopeID identifies the workspace.
	ScopeID string `json:"scope_id"`

	// UnreadUpdates is the number of notifications for the viewer with
	// no read acknowledgement.
	UnreadUpdates int `json:"unread_updates"`

	// PendingApprovals is the number of approval requests still
	// awaiting the viewer's action.
	PendingApprovals int `json:"pending_approvals"`
}

// Empty reports whether both counters are zero. Empty summaries are
// omitted from the view rather than rendered as zero badges.
func (s ScopeSummary) Empty() bool {
	return s.UnreadUpdates == 0 && s.PendingApprovals == 0
}
