// Package wizard provides TUI building blocks for the creation wizard.
package wizard

import (
	"fmt"
	"strings"

	"vectorportal/internal/adapter/tui/theme"
)

// StepIndicatorModel displays progress as "Step 2/3: Authentication", a
// breadcrumb of step names and a progress bar.
type StepIndicatorModel struct {
	Names   []string
	Current int // 1-based
	width   int
}

// NewStepIndicator creates a step indicator positioned on step 1.
func NewStepIndicator(names []string) StepIndicatorModel {
	return StepIndicatorModel{Names: names, Current: 1}
}

// SetWidth sets the rendering width.
func (m *StepIndicatorModel) SetWidth(w int) {
	m.width = w
}

// SetCurrent sets the active 1-based step. Out of range values are ignored.
func (m *StepIndicatorModel) SetCurrent(step int) {
	if step >= 1 && step <= len(m.Names) {
		m.Current = step
	}
}

// View renders the step indicator.
func (m StepIndicatorModel) View() string {
	if len(m.Names) == 0 || m.width < 20 {
		return ""
	}

	header := theme.WizardStepActive.Render(
		fmt.Sprintf("Step %d/%d: %s", m.Current, len(m.Names), m.Names[m.Current-1]),
	)

	crumbs := make([]string, len(m.Names))
	for i, name := range m.Names {
		step := i + 1
		switch {
		case step < m.Current:
			crumbs[i] = theme.WizardStepDone.Render(theme.SymbolSuccess + " " + name)
		case step == m.Current:
			crumbs[i] = theme.WizardStepActive.Render(name)
		default:
			crumbs[i] = theme.WizardStepPending.Render(name)
		}
	}
	trail := strings.Join(crumbs, theme.Dim.Render(" "+theme.SymbolArrowR+" "))

	barWidth := max(m.width-10, 10)
	pct := float64(m.Current-1) / float64(len(m.Names))
	filled := min(int(pct*float64(barWidth)), barWidth)

	bar := theme.ProgressFull.Render(strings.Repeat("█", filled)) +
		theme.ProgressEmpty.Render(strings.Repeat("░", barWidth-filled))
	pctStr := theme.TextMuted.Render(fmt.Sprintf(" %d%%", int(pct*100)))

	return header + "\n" + trail + "\n" + bar + pctStr
}
