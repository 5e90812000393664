package wizard

import (
	"context"
	"log/slog"
)

// maxSettleRounds bounds the effect/event feedback loop of one dispatch.
const maxSettleRounds = 16

// Driver owns one session and runs its effects synchronously. It is the
// headless counterpart of the terminal front end and is not safe for
// concurrent use.
type Driver struct {
	runner  *Runner
	logger  *slog.Logger
	session Session
}

// NewDriver creates a driver with a fresh session for flow.
func NewDriver(flow Flow, runner *Runner, logger *slog.Logger) *Driver {
	s := NewSession(flow)
	return &Driver{
		runner:  runner,
		logger:  logger.With("session", s.ID, "flow", flow.String()),
		session: s,
	}
}

// Session returns the current session.
func (d *Driver) Session() Session { return d.session }

// Dispatch applies ev and then runs every resulting effect, feeding the
// results back until no effects remain.
func (d *Driver) Dispatch(ctx context.Context, ev Event) Session {
	var effects []Effect
	d.session, effects = Transition(d.session, ev)
	for round := 0; len(effects) > 0 && round < maxSettleRounds; round++ {
		results := d.runner.RunAll(ctx, effects)
		effects = nil
		for _, res := range results {
			if res == nil {
				continue
			}
			var more []Effect
			d.session, more = Transition(d.session, res)
			effects = append(effects, more...)
		}
	}
	if d.session.Notice != "" {
		d.logger.Debug("wizard notice", "step", d.session.Step, "notice", d.session.Notice)
	}
	return d.session
}
