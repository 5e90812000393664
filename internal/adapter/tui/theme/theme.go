// Package theme is the visual design system of the portal TUI. Styles use
// adaptive colors that work on light and dark terminals.
//
// NO_COLOR (https://no-color.org/) is respected by lipgloss via its color
// profile detection.
package theme

import (
	"github.com/charmbracelet/lipgloss"
)

// --- Adaptive color palette ---

var (
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#66bb6a"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#c62828", Dark: "#ef5350"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#e65100", Dark: "#ffa726"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#0277bd", Dark: "#4fc3f7"}
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#6a1b9a", Dark: "#ce93d8"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9e9e9e"}

	ColorBgAlt = lipgloss.AdaptiveColor{Light: "#f5f5f5", Dark: "#2d2d2d"}
	ColorFgDim = lipgloss.AdaptiveColor{Light: "#9e9e9e", Dark: "#757575"}
)

// --- Symbols (set by InitSymbols in symbols.go) ---

var (
	SymbolSuccess   = "✓"
	SymbolError     = "✗"
	SymbolWarning   = "⚠"
	SymbolInfo      = "●"
	SymbolArrowR    = "→"
	SymbolBullet    = "•"
	SymbolEllipsis  = "…"
	SymbolChecked   = "☑"
	SymbolUnchecked = "☐"
	SymbolCursor    = "❯"
)

// --- Base styles ---

var (
	Bold = lipgloss.NewStyle().Bold(true)
	Dim  = lipgloss.NewStyle().Faint(true)

	TextSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	TextError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	TextWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	TextInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	TextAccent  = lipgloss.NewStyle().Foreground(ColorAccent)
	TextMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
)

// --- Status bar ---

var (
	StatusBar = lipgloss.NewStyle().
			Foreground(ColorFgDim).
			Background(ColorBgAlt).
			Padding(0, 1)

	StatusKey = lipgloss.NewStyle().
			Foreground(ColorInfo).
			Bold(true)
)

// --- Form fields ---

var (
	InputPrompt = lipgloss.NewStyle().
			Foreground(ColorInfo).
			Bold(true)

	InputPlaceholder = lipgloss.NewStyle().
				Foreground(ColorFgDim)

	FieldLabel = lipgloss.NewStyle().Bold(true)

	FieldLabelFocused = lipgloss.NewStyle().
				Foreground(ColorInfo).
				Bold(true)

	RequiredMark = lipgloss.NewStyle().
			Foreground(ColorError)

	// Badge tags list entries that cannot be picked yet.
	Badge = lipgloss.NewStyle().
		Foreground(ColorWarning).
		Padding(0, 1)
)

// --- Wizard ---

var (
	WizardTitle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			Padding(0, 0, 1, 0)

	WizardStepActive = lipgloss.NewStyle().
				Foreground(ColorInfo).
				Bold(true)

	WizardStepDone = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	WizardStepPending = lipgloss.NewStyle().
				Foreground(ColorMuted)

	ProgressFull = lipgloss.NewStyle().
			Foreground(ColorInfo)

	ProgressEmpty = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

// MaxContentWidth is the recommended max width for readable text content.
const MaxContentWidth = 100

// Clamp returns v clamped to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
