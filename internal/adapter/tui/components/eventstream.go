package components

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"vectorportal/internal/adapter/tui/theme"
	"vectorportal/internal/domain"
)

const maxEventEntries = 500

// EventStreamModel displays a scrollable stream of gateway events with
// auto-scroll while the view is at the bottom.
type EventStreamModel struct {
	Viewport viewport.Model
	events   []domain.Event
	ready    bool
	atBottom bool
}

// NewEventStream creates an event stream viewer.
func NewEventStream() EventStreamModel {
	return EventStreamModel{atBottom: true}
}

// SetSize sets the viewport dimensions.
func (m *EventStreamModel) SetSize(w, h int) {
	if !m.ready {
		m.Viewport = viewport.New(w, h)
		m.Viewport.MouseWheelEnabled = true
		m.Viewport.MouseWheelDelta = 3
		m.ready = true
	} else {
		m.Viewport.Width = w
		m.Viewport.Height = h
	}
	m.refreshContent()
}

// AddEvent appends an event, dropping the oldest past maxEventEntries.
func (m *EventStreamModel) AddEvent(event domain.Event) {
	m.events = append(m.events, event)
	if len(m.events) > maxEventEntries {
		m.events = m.events[len(m.events)-maxEventEntries:]
	}
	m.refreshContent()
	if m.atBottom {
		m.Viewport.GotoBottom()
	}
}

// Update handles viewport scrolling.
func (m EventStreamModel) Update(msg tea.Msg) (EventStreamModel, tea.Cmd) {
	if !m.ready {
		return m, nil
	}
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	m.atBottom = m.Viewport.AtBottom()
	return m, cmd
}

// EventCount returns the number of buffered events.
func (m EventStreamModel) EventCount() int {
	return len(m.events)
}

// View renders the event stream.
func (m EventStreamModel) View() string {
	if !m.ready {
		return ""
	}
	return m.Viewport.View()
}

func (m *EventStreamModel) refreshContent() {
	if !m.ready {
		return
	}
	if len(m.events) == 0 {
		m.Viewport.SetContent(theme.TextMuted.Render("  Waiting for events" + theme.SymbolEllipsis))
		return
	}

	var sb strings.Builder
	for _, evt := range m.events {
		sb.WriteString(FormatEvent(evt))
		sb.WriteByte('\n')
	}
	m.Viewport.SetContent(sb.String())
}

// eventSummary is the subset of event payload fields worth a column.
type eventSummary struct {
	Name         string `json:"credential_name"`
	DisplayName  string `json:"display_name"`
	ProviderType string `json:"provider_type"`
	Target       string `json:"target"`
	Success      *bool  `json:"success"`
	Message      string `json:"message"`
}

// FormatEvent renders one event as a styled line.
func FormatEvent(evt domain.Event) string {
	padded := fmt.Sprintf("%-22s", evt.Type)
	var typeStyled string
	switch evt.Type {
	case domain.EventCredentialCreated:
		typeStyled = theme.TextSuccess.Render(padded)
	case domain.EventVectorStoreCreated:
		typeStyled = theme.TextAccent.Render(padded)
	case domain.EventConnectionTested:
		typeStyled = theme.TextInfo.Render(padded)
	default:
		typeStyled = theme.TextMuted.Render(padded)
	}

	var s eventSummary
	_ = json.Unmarshal(evt.Payload, &s)
	var detail []string
	if name := s.Name + s.DisplayName; name != "" {
		detail = append(detail, name)
	}
	if s.ProviderType != "" {
		detail = append(detail, s.ProviderType)
	}
	if s.Success != nil {
		mark := theme.TextSuccess.Render(theme.SymbolSuccess)
		if !*s.Success {
			mark = theme.TextError.Render(theme.SymbolError)
		}
		detail = append(detail, mark+" "+s.Message)
	}
	line := fmt.Sprintf("  %s  %s %s", theme.Dim.Render(evt.Timestamp.Local().Format("15:04:05")), typeStyled, strings.Join(detail, "  "))
	if evt.RequestID != "" {
		line += theme.TextMuted.Render("  req=" + evt.RequestID)
	}
	return line
}
