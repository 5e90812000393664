package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vectorportal/internal/adapter/gatewayapi"
	"vectorportal/internal/adapter/tui/components"
	"vectorportal/internal/adapter/tui/theme"
	"vectorportal/internal/adapter/tui/uxerror"
	"vectorportal/internal/domain"
)

// Ensure *DashboardModel satisfies tea.Model.
var _ tea.Model = (*DashboardModel)(nil)

const defaultPollInterval = 5 * time.Second

// StatusSource reports the gateway status.
type StatusSource interface {
	Status(ctx context.Context) (gatewayapi.StatusResponse, error)
}

// EventWatcher streams gateway events until ctx ends.
type EventWatcher interface {
	Watch(ctx context.Context, handle func(domain.Event)) error
}

// DashboardDeps are dependencies for the dashboard.
type DashboardDeps struct {
	Status       StatusSource
	Gateway      string // shown in the status bar
	PollInterval time.Duration
}

// DashboardModel is the root Bubble Tea model for the gateway monitor.
type DashboardModel struct {
	ctx  context.Context
	deps DashboardDeps

	overview OverviewModel
	events   components.EventStreamModel
	closed   error
	ended    bool

	width  int
	height int
}

// NewDashboardModel creates the dashboard model.
func NewDashboardModel(ctx context.Context, deps DashboardDeps) *DashboardModel {
	if deps.PollInterval <= 0 {
		deps.PollInterval = defaultPollInterval
	}
	return &DashboardModel{
		ctx:      ctx,
		deps:     deps,
		overview: NewOverview(),
		events:   components.NewEventStream(),
	}
}

// Init starts the first status poll.
func (m *DashboardModel) Init() tea.Cmd {
	if m.deps.Status == nil {
		return nil
	}
	return fetchStatusCmd(m.ctx, m.deps.Status)
}

// Update handles messages.
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, m.Init()
		}

	case EventMsg:
		m.overview.Count(msg.Event)
		m.events.AddEvent(msg.Event)
		return m, nil

	case StatusMsg:
		m.overview.SetStatus(msg.Status, msg.Err)
		return m, pollCmd(m.deps.PollInterval)

	case pollMsg:
		return m, m.Init()

	case StreamClosedMsg:
		m.ended = true
		m.closed = msg.Err
		return m, nil
	}

	var cmd tea.Cmd
	m.events, cmd = m.events.Update(msg)
	return m, cmd
}

// View renders the dashboard.
func (m *DashboardModel) View() string {
	if m.width == 0 {
		return "  Initializing" + theme.SymbolEllipsis
	}

	header := theme.WizardTitle.Render("Gateway monitor")
	body := m.events.View()
	if m.events.EventCount() == 0 {
		body = theme.TextMuted.Render("  Waiting for events" + theme.SymbolEllipsis)
	}

	sb := components.NewStatusBar()
	sb.Hints = []components.KeyHint{
		{Key: "j/k", Desc: "Scroll"},
		{Key: "r", Desc: "Refresh"},
		{Key: "q", Desc: "Quit"},
	}
	sb.Gateway = m.deps.Gateway
	switch {
	case m.closed != nil:
		sb.Extra = theme.TextError.Render("stream lost: " + uxerror.Message(m.closed))
	case m.ended:
		sb.Extra = "stream closed"
	default:
		sb.Extra = fmt.Sprintf("%d events", m.events.EventCount())
	}
	sb.SetWidth(m.width)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.overview.View(),
		"",
		body,
		sb.View(),
	)
}

func (m *DashboardModel) layout() {
	m.overview.SetWidth(m.width)
	// header, overview, spacer, footer
	h := m.height - 1 - m.overview.Height() - 1 - 1
	if h < 5 {
		h = 5
	}
	m.events.SetSize(m.width, h)
}

// Overview returns the counters panel.
func (m *DashboardModel) Overview() OverviewModel { return m.overview }

// Run shows the monitor until the user quits or ctx ends. Events from
// watcher are injected into the program as they arrive.
func Run(ctx context.Context, deps DashboardDeps, watcher EventWatcher, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewDashboardModel(ctx, deps)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))

	go func() {
		err := watcher.Watch(ctx, func(evt domain.Event) {
			p.Send(EventMsg{Event: evt})
		})
		if err != nil && ctx.Err() == nil {
			logger.Warn("event stream ended", "error", err)
		}
		p.Send(StreamClosedMsg{Err: err})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
