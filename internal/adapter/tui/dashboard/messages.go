// Package dashboard implements the gateway monitor behind `portal watch`:
// live status counters above the event stream.
package dashboard

import (
	"vectorportal/internal/adapter/gatewayapi"
	"vectorportal/internal/domain"
)

// EventMsg wraps an event received from the gateway stream.
type EventMsg struct {
	Event domain.Event
}

// StatusMsg carries the result of a status poll.
type StatusMsg struct {
	Status gatewayapi.StatusResponse
	Err    error
}

// StreamClosedMsg reports that the event stream ended.
type StreamClosedMsg struct {
	Err error
}

type pollMsg struct{}
