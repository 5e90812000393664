package dashboard

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// fetchStatusCmd polls the gateway status asynchronously.
func fetchStatusCmd(ctx context.Context, src StatusSource) tea.Cmd {
	return func() tea.Msg {
		st, err := src.Status(ctx)
		return StatusMsg{Status: st, Err: err}
	}
}

func pollCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg { return pollMsg{} })
}
