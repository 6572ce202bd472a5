// Package live receives push updates about newly scheduled guests and turns them into
// notifications and guest list refreshes.
package live

import (
	"context"
	"encoding/json"
)

// Event names.
const (
	EventNewGuest = "new-guest"
	EventRegister = "register"
)

// Event is one frame of the live channel.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Handler consumes events. It must not block for long.
type Handler func(ctx context.Context, ev Event)

// Source delivers events until ctx is done. Run returns nil on a clean shutdown.
type Source interface {
	Run(ctx context.Context, handle Handler) error
}

// registration identifies this console to the live channel.
type registration struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}
