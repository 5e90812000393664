package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"vectorportal/internal/adapter/tui/theme"
)

// KeyHint is a single keybinding hint shown in the status bar.
type KeyHint struct {
	Key  string // e.g. "Enter"
	Desc string // e.g. "Next"
}

// StatusBarModel renders a bottom bar with keybinding hints on the left and
// gateway info on the right.
type StatusBarModel struct {
	Hints   []KeyHint
	Gateway string
	Extra   string // transient status, e.g. "Saving…"
	width   int
}

// NewStatusBar creates an empty status bar.
func NewStatusBar() StatusBarModel {
	return StatusBarModel{}
}

// SetWidth updates the available width.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single line.
func (m StatusBarModel) View() string {
	hints := make([]string, 0, len(m.Hints))
	for _, h := range m.Hints {
		hints = append(hints, theme.StatusKey.Render(h.Key)+": "+h.Desc)
	}
	left := strings.Join(hints, "  "+theme.Dim.Render("|")+"  ")

	var right string
	if m.Extra != "" {
		right = theme.TextInfo.Render(m.Extra)
	}
	if m.Gateway != "" {
		if right != "" {
			right += "  "
		}
		right += theme.TextMuted.Render(m.Gateway)
	}

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}
