// Package aggregate derives per-workspace activity counters from the
// notification and approval sets. Summaries are always replaced as a
// whole (recompute, never patch), so a dropped or duplicated channel
// event can shift a counter for at most one pass before the next
// recomputation corrects it.
package aggregate

import (
	"github.com/nhle/cosync/internal/model"
)

// Summarizer owns the derived summaries for every scope currently
// shown in the workspace list. Like the reconciler it is a plain state
// machine driven from the event loop.
type Summarizer struct {
	viewerID  string
	tracked   []string
	trackedBy map[string]bool
	summaries map[string]model.ScopeSummary
}

// NewSummarizer creates an empty summarizer for the given viewer.
// Counters only ever count rows owned by this viewer.
func NewSummarizer(viewerID string) *Summarizer {
	return &Summarizer{
		viewerID:  viewerID,
		trackedBy: make(map[string]bool),
		summaries: make(map[string]model.ScopeSummary),
	}
}

// SetTracked replaces the set of scopes the summarizer follows,
// preserving the given order for TrackedScopes. Summaries of scopes
// no longer tracked are dropped.
func (s *Summarizer) SetTracked(scopeIDs []string) {
	s.tracked = make([]string, 0, len(scopeIDs))
	s.trackedBy = make(map[string]bool, len(scopeIDs))
	for _, id := range scopeIDs {
		if s.trackedBy[id] {
			continue
		}
		s.tracked = append(s.tracked, id)
		s.trackedBy[id] = true
	}
	for id := range s.summaries {
		if !s.trackedBy[id] {
			delete(s.summaries, id)
		}
	}
}

// TrackedScopes returns the scope IDs to pass to the batched summary
// fetch, in tracking order.
func (s *Summarizer) TrackedScopes() []string {
	out := make([]string, len(s.tracked))
	copy(out, s.tracked)
	return out
}

// Tracks reports whether the given scope is being followed. Channel
// events for untracked scopes still trigger a recompute upstream; the
// result simply contains nothing for them.
func (s *Summarizer) Tracks(scopeID string) bool {
	return s.trackedBy[scopeID]
}

// SetSummaries replaces the entire summary map with a backend fetch
// result. Untracked scopes and empty summaries are discarded, matching
// the conditional-visibility badge model.
func (s *Summarizer) SetSummaries(summaries map[string]model.ScopeSummary) {
	s.summaries = make(map[string]model.ScopeSummary, len(summaries))
	for scopeID, summary := range summaries {
		if !s.trackedBy[scopeID] || summary.Empty() {
			continue
		}
		summary.ScopeID = scopeID
		s.summaries[scopeID] = summary
	}
}

// Recompute folds raw notification and approval rows into a fresh
// summary map, replacing the previous one. The fold is a pure function
// of the distinct rows: each row ID counts at most once even when
// redelivery duplicates it in the input, and rows not owned by the
// viewer never count.
func (s *Summarizer) Recompute(notifications []model.Notification, approvals []model.Approval) {
	fresh := make(map[string]model.ScopeSummary)
	seenNotifs := make(map[string]bool, len(notifications))
	seenApprovals := make(map[string]bool, len(approvals))

	for _, n := range notifications {
		if !s.trackedBy[n.ScopeID] || n.RecipientID != s.viewerID || !n.Unread() {
			continue
		}
		if seenNotifs[n.ID] {
			continue
		}
		seenNotifs[n.ID] = true
		summary := fresh[n.ScopeID]
		summary.ScopeID = n.ScopeID
		summary.UnreadUpdates++
		fresh[n.ScopeID] = summary
	}

	for _, a := range approvals {
		if !s.trackedBy[a.ScopeID] || !a.AwaitingUser(s.viewerID) {
			continue
		}
		if seenApprovals[a.ID] {
			continue
		}
		seenApprovals[a.ID] = true
		summary := fresh[a.ScopeID]
		summary.ScopeID = a.ScopeID
		summary.PendingApprovals++
		fresh[a.ScopeID] = summary
	}

	s.summaries = fresh
}

// MarkReadLocal optimistically decrements the unread counter for a
// scope after a mark-read call, clamped at zero, for immediate UI
// feedback. The next recompute pass reconciles with the
// server-confirmed state and overrides any drift.
func (s *Summarizer) MarkReadLocal(scopeID string, count int) {
	summary, ok := s.summaries[scopeID]
	if !ok {
		return
	}
	summary.UnreadUpdates -= count
	if summary.UnreadUpdates < 0 {
		summary.UnreadUpdates = 0
	}
	s.store(summary)
}

// MarkAllReadLocal optimistically zeroes the unread counter for a
// scope after an all-in-scope mark-read call.
func (s *Summarizer) MarkAllReadLocal(scopeID string) {
	summary, ok := s.summaries[scopeID]
	if !ok {
		return
	}
	summary.UnreadUpdates = 0
	s.store(summary)
}

// ResolveApprovalLocal optimistically decrements the pending-approval
// counter after the viewer acts on a request.
func (s *Summarizer) ResolveApprovalLocal(scopeID string) {
	summary, ok := s.summaries[scopeID]
	if !ok {
		return
	}
	summary.PendingApprovals--
	if summary.PendingApprovals < 0 {
		summary.PendingApprovals = 0
	}
	s.store(summary)
}

// Badge returns the summary to render for a scope. ok is false when
// there is nothing to show: both counters zero means no badge, not a
// zero badge.
func (s *Summarizer) Badge(scopeID string) (model.ScopeSummary, bool) {
	summary, ok := s.summaries[scopeID]
	if !ok || summary.Empty() {
		return model.ScopeSummary{}, false
	}
	return summary, true
}

// Summaries returns a copy of the current non-empty summaries.
func (s *Summarizer) Summaries() map[string]model.ScopeSummary {
	out := make(map[string]model.ScopeSummary, len(s.summaries))
	for id, summary := range s.summaries {
		out[id] = summary
	}
	return out
}

// store writes back a summary, removing it when it reaches empty so a
// cleared scope's badge disappears immediately.
func (s *Summarizer) store(summary model.ScopeSummary) {
	if summary.Empty() {
		delete(s.summaries, summary.ScopeID)
		return
	}
	s.summaries[summary.ScopeID] = summary
}
