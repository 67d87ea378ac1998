package monitor

import "github.com/lobbywatch/backend/internal/lobby"

// Source produces typed log events for the driver. Poll is called from the
// driver's source goroutine only and need not be safe for concurrent use.
type Source interface {
	// Name identifies the source in logs and health output.
	Name() string

	// Poll returns the events that appeared since the previous call, in
	// the order they occurred. An error marks this poll as failed; the
	// source is polled again on the next tick.
	Poll() ([]lobby.Event, error)
}
