package dashboard

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"vectorportal/internal/adapter/gatewayapi"
	"vectorportal/internal/adapter/tui/theme"
	"vectorportal/internal/domain"
)

// OverviewModel shows the gateway status and what happened since the
// monitor started.
type OverviewModel struct {
	Status       gatewayapi.StatusResponse
	StatusErr    error
	HaveStatus   bool
	Credentials  int
	VectorStores int
	TestsPassed  int
	TestsFailed  int
	StartedAt    time.Time
	width        int
}

// NewOverview creates an overview panel.
func NewOverview() OverviewModel {
	return OverviewModel{StartedAt: time.Now()}
}

// SetWidth sets the panel width.
func (m *OverviewModel) SetWidth(w int) { m.width = w }

// SetStatus records the latest status poll.
func (m *OverviewModel) SetStatus(st gatewayapi.StatusResponse, err error) {
	m.StatusErr = err
	if err == nil {
		m.Status = st
		m.HaveStatus = true
	}
}

// Count updates the session counters from one event.
func (m *OverviewModel) Count(evt domain.Event) {
	switch evt.Type {
	case domain.EventCredentialCreated:
		m.Credentials++
	case domain.EventVectorStoreCreated:
		m.VectorStores++
	case domain.EventConnectionTested:
		var body struct {
			Success bool `json:"success"`
		}
		_ = json.Unmarshal(evt.Payload, &body)
		if body.Success {
			m.TestsPassed++
		} else {
			m.TestsFailed++
		}
	}
}

// Height is the number of lines View renders.
func (m OverviewModel) Height() int { return 4 }

// View renders the panel.
func (m OverviewModel) View() string {
	var gw string
	switch {
	case m.StatusErr != nil:
		gw = theme.TextError.Render(theme.SymbolError+" unreachable") + theme.TextMuted.Render("  "+m.StatusErr.Error())
	case !m.HaveStatus:
		gw = theme.TextMuted.Render("checking" + theme.SymbolEllipsis)
	default:
		st := m.Status
		enc := "plaintext secrets"
		if st.SecretsEncrypted {
			enc = "secrets encrypted"
		}
		gw = fmt.Sprintf("%s v%s  up %s  %s  %d watcher(s)",
			theme.TextSuccess.Render(theme.SymbolSuccess+" online"),
			st.Version,
			(time.Duration(st.UptimeSeconds) * time.Second).String(),
			enc,
			st.StreamClients)
	}

	stored := "-"
	if m.HaveStatus {
		stored = fmt.Sprintf("%d credentials, %d vector stores", m.Status.Credentials, m.Status.VectorStores)
	}

	tests := fmt.Sprintf("%s %d  %s %d",
		theme.TextSuccess.Render(theme.SymbolSuccess), m.TestsPassed,
		theme.TextError.Render(theme.SymbolError), m.TestsFailed)

	lines := []string{
		row("Gateway", gw),
		row("Stored", stored),
		row("Since start", fmt.Sprintf("%d credentials, %d vector stores created", m.Credentials, m.VectorStores)),
		row("Tests", tests),
	}
	return lipgloss.NewStyle().Width(max(m.width, 20)).Render(strings.Join(lines, "\n"))
}

func row(label, value string) string {
	return "  " + theme.FieldLabel.Render(fmt.Sprintf("%-12s", label)) + " " + value
}
