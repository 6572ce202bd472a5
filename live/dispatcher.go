package live

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"gatedesk/models"
	"gatedesk/notifications"
)

// GuestRefresher re-fetches the full guest list.
type GuestRefresher interface {
	FetchAllGuests(ctx context.Context) error
}

// Dispatcher reacts to live events: a new guest becomes a notification followed by a refresh
// of the full guest list.
type Dispatcher struct {
	log    *notifications.Log
	guests GuestRefresher
	loc    *time.Location
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewDispatcher(log *notifications.Log, guests GuestRefresher, loc *time.Location, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Dispatcher{log: log, guests: guests, loc: loc, logger: logger.Named("live")}
}

// Handle is a Handler.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) {
	switch ev.Name {
	case EventNewGuest:
		d.newGuest(ctx, ev.Data)
	default:
		d.logger.Debug("ignoring live event", zap.String("event", ev.Name))
	}
}

func (d *Dispatcher) newGuest(ctx context.Context, data json.RawMessage) {
	var payload models.NewGuestEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		d.logger.Warn("malformed new-guest payload", zap.ByteString("data", data), zap.Error(err))
	}

	n := notifications.NewGuestScheduled(payload, d.loc)
	d.log.Append(context.WithoutCancel(ctx), n)
	d.logger.Info("new guest scheduled", zap.String("code", payload.Code), zap.String("message", n.Message))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.guests.FetchAllGuests(ctx); err != nil {
			d.logger.Warn("refresh after new guest failed", zap.Error(err))
		}
	}()
}

// Wait blocks until triggered refreshes have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
