// Package setup is the Bubble Tea front end of the creation wizard. It
// feeds key presses to the wizard reducer as events and runs the effects
// the reducer emits as commands.
package setup

import "vectorportal/internal/usecase/wizard"

// effectDoneMsg carries the event produced by running one effect.
type effectDoneMsg struct {
	event wizard.Event
}
