package wizard

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vectorportal/internal/adapter/tui/theme"
	"vectorportal/internal/domain"
)

// TestStatusModel shows an advisory connection test: a spinner while it
// runs, then the outcome.
type TestStatusModel struct {
	Spinner spinner.Model
	Running bool
	Result  *domain.TestResult
}

// NewTestStatus creates an idle test status.
func NewTestStatus() TestStatusModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorInfo)
	return TestStatusModel{Spinner: s}
}

// Sync copies the session's test state.
func (m *TestStatusModel) Sync(running bool, result *domain.TestResult) {
	m.Running = running
	m.Result = result
}

// Update handles spinner ticks.
func (m TestStatusModel) Update(msg tea.Msg) (TestStatusModel, tea.Cmd) {
	if m.Running {
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the test state, or nothing when no test has run.
func (m TestStatusModel) View() string {
	switch {
	case m.Running:
		return m.Spinner.View() + " Testing connection" + theme.SymbolEllipsis
	case m.Result == nil:
		return ""
	case m.Result.Success:
		return theme.TextSuccess.Render(theme.SymbolSuccess + " " + m.Result.Message)
	default:
		return theme.TextError.Render(theme.SymbolError+" Connection test failed: "+m.Result.Message) +
			"\n" + theme.TextMuted.Render("  The test is advisory; you can still save.")
	}
}
