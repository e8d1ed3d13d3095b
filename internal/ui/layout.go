package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/cosync/internal/theme"
)

// One row of chrome above and below the content area.
const (
	headerRows    = 1
	statusBarRows = 1
)

// Layout tracks the terminal size and slices it into the header row,
// the content area, and the status bar shared by every view.
type Layout struct {
	Width  int
	Height int
}

// NewLayout creates a Layout for the given terminal size.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentWidth returns the width available to the active view.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the rows left for the active view once the
// header and status bar are taken out.
func (l Layout) ContentHeight() int {
	return l.Height - headerRows - statusBarRows
}

// fillRow pads rendered content out to the full terminal width so the
// bar's background color runs edge to edge.
func (l Layout) fillRow(style lipgloss.Style, content string) string {
	return lipgloss.NewStyle().
		Width(l.Width).
		Background(style.GetBackground()).
		Render(content)
}

// RenderHeader renders the top bar: view title on the left, channel
// connection state on the right.
func (l Layout) RenderHeader(title string, connState string) string {
	left := theme.HeaderStyle.Render(title)
	right := theme.HeaderStyle.Render(connState)

	room := l.Width - lipgloss.Width(left)
	if room < 0 {
		room = 0
	}
	placed := lipgloss.PlaceHorizontal(room, lipgloss.Right, right,
		lipgloss.WithWhitespaceBackground(theme.HeaderStyle.GetBackground()))

	return lipgloss.JoinHorizontal(lipgloss.Top, left, placed)
}

// RenderStatusBar renders the bottom bar of keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	return l.fillRow(theme.StatusBarStyle, theme.StatusBarStyle.Render(hints))
}

// RenderWithFrame stacks the header, the content area, and the status
// bar into the final frame.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
