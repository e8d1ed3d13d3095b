package scopelist

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/cosync/internal/model"
	"github.com/nhle/cosync/internal/theme"
)

// WorkspaceItem wraps a model.Workspace so it can be used in a bubbles/list.
type WorkspaceItem struct {
	Workspace model.Workspace
}

// FilterValue returns the string used for fuzzy filtering.
func (i WorkspaceItem) FilterValue() string { return i.Workspace.Name }

// Title returns the workspace name for the list.
func (i WorkspaceItem) Title() string { return i.Workspace.Name }

// Description returns the partner line for the list.
func (i WorkspaceItem) Description() string { return i.Workspace.PartnerName }

// ItemDelegate implements list.ItemDelegate for workspace rows. It
// holds the summary map by reference, shared with the scopelist Model,
// so recomputed badges show up without rebuilding the list.
type ItemDelegate struct {
	summaries map[string]model.ScopeSummary
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single workspace row: name, partner, and the badges.
// A scope whose summary is absent or empty renders no badge at all,
// never a zero.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	wi, ok := item.(WorkspaceItem)
	if !ok {
		return
	}

	var badges []string
	if summary, ok := d.summaries[wi.Workspace.ID]; ok && !summary.Empty() {
		if summary.UnreadUpdates > 0 {
			badges = append(badges,
				theme.UnreadBadgeStyle.Render(fmt.Sprintf("%d new", summary.UnreadUpdates)))
		}
		if summary.PendingApprovals > 0 {
			badges = append(badges,
				theme.ApprovalBadgeStyle.Render(fmt.Sprintf("%d to approve", summary.PendingApprovals)))
		}
	}

	line := wi.Workspace.Name
	if wi.Workspace.PartnerName != "" {
		line += " · " + wi.Workspace.PartnerName
	}
	if len(badges) > 0 {
		line += "  " + strings.Join(badges, " ")
	}

	if index == m.Index() {
		fmt.Fprint(w, theme.SelectedItemStyle.Render(line))
		return
	}
	fmt.Fprint(w, theme.ListItemStyle.Render(line))
}
