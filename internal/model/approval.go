package model

import "time"

// ApprovalStatus is the lifecycle state of an approval request.
// Pending transitions exactly once to approved or rejected; the
// terminal states are immutable.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Approval is a request by one workspace member for the other member's
// sign-off on some entity (a goal change, a check-in, a schedule edit).
type Approval struct {
	// ID is the unique identifier for this approval request.
	ID string `json:"id" db:"id"`

	// ScopeID identifies the workspace the request belongs to.
	ScopeID string `json:"scope_id" db:"scope_id"`

	// ApproverID is the user who must act on the request.
	ApproverID string `json:"approver_id" db:"approver_id"`

	// ProposerID is the user who created the request.
	ProposerID string `json:"proposer_id" db:"proposer_id"`

	// EntityType names the kind of entity awaiting sign-off.
	EntityType string `json:"entity_type" db:"entity_type"`

	// Status is the lifecycle state.
	Status ApprovalStatus `json:"status" db:"status"`

	// CreatedAt is when the proposer created the request.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AwaitingUser reports whether the approval is still pending and
// addressed to the given user.
func (a Approval) AwaitingUser(userID string) bool {
	return a.Status == ApprovalPending && a.ApproverID == userID
}
