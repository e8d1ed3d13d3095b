package model

import "time"

// Workspace is a shared space between two matched partners. Messages,
// notifications, and approvals are all scoped to a workspace.
type Workspace struct {
	// ID is the unique identifier, used as the scope ID everywhere.
	ID string `json:"id" db:"id"`

	// Name is the display name of the workspace.
	Name string `json:"name" db:"name"`

	// PartnerName is the display name of the other member.
	PartnerName string `json:"partner_name" db:"partner_name"`

	// CreatedAt is when the workspace was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
