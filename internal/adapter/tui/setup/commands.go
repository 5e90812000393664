package setup

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"vectorportal/internal/usecase/wizard"
)

// effectCmds turns reducer effects into commands. Each command runs its
// effect on the shared runner and reports the result event. Effects of one
// transition run one after another in slice order, as in Runner.RunAll.
func effectCmds(ctx context.Context, runner *wizard.Runner, effects []wizard.Effect) tea.Cmd {
	if len(effects) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(effects))
	for _, eff := range effects {
		cmds = append(cmds, func() tea.Msg {
			return effectDoneMsg{event: runner.Run(ctx, eff)}
		})
	}
	return tea.Sequence(cmds...)
}
