// Package overlay keeps the console's own record of who checked each guest in, and when.
// Entries are provisional: they fill gaps in the server's arrival fields until a fetch of the
// arrived list confirms the check-in, and they are evicted once stale.
package overlay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"gatedesk/db"
	"gatedesk/models"
	"gatedesk/visits"
)

// Overlay is the persisted guest-code -> check-in entry map.
type Overlay struct {
	mu      sync.Mutex
	entries map[string]models.CheckInOverlayEntry

	kv     db.KV
	logger *zap.Logger
	now    func() time.Time
}

// New returns an empty overlay backed by kv. Call Load to restore persisted entries.
func New(kv db.KV, logger *zap.Logger, now func() time.Time) *Overlay {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Overlay{
		entries: make(map[string]models.CheckInOverlayEntry),
		kv:      kv,
		logger:  logger.Named("overlay"),
		now:     now,
	}
}

// Load replaces the in-memory map with the persisted one. Unreadable or corrupt data yields an
// empty overlay.
func (o *Overlay) Load(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.entries = make(map[string]models.CheckInOverlayEntry)
	if o.kv == nil {
		return
	}

	raw, err := o.kv.Get(ctx, db.KeyCheckInOverlay)
	if err != nil {
		o.logger.Warn("failed to read check-in overlay", zap.Error(err))
		return
	}
	if raw == nil {
		return
	}

	var stored map[string]models.CheckInOverlayEntry
	if err := json.Unmarshal(raw, &stored); err != nil {
		o.logger.Warn("discarding corrupt check-in overlay", zap.Error(err))
		return
	}
	for code, e := range stored {
		o.entries[code] = e
	}
	o.logger.Debug("check-in overlay loaded", zap.Int("entries", len(o.entries)))
}

// persist must be called with mu held. Failures are logged and dropped.
func (o *Overlay) persist(ctx context.Context) {
	if o.kv == nil {
		return
	}
	raw, err := json.Marshal(o.entries)
	if err != nil {
		o.logger.Warn("failed to encode check-in overlay", zap.Error(err))
		return
	}
	if err := o.kv.Set(ctx, db.KeyCheckInOverlay, raw); err != nil {
		o.logger.Warn("failed to persist check-in overlay", zap.Error(err))
	}
}

// Record upserts the entry for guestCode. A repeat check-in overwrites the earlier entry and
// resets its confirmation.
func (o *Overlay) Record(ctx context.Context, guestCode string, e models.CheckInOverlayEntry) {
	if e.CapturedAt.IsZero() {
		e.CapturedAt = o.now()
	}
	e.Confirmed = false

	o.mu.Lock()
	defer o.mu.Unlock()

	o.entries[guestCode] = e
	o.persist(ctx)
}

// Get returns the entry for guestCode.
func (o *Overlay) Get(guestCode string) (models.CheckInOverlayEntry, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	e, ok := o.entries[guestCode]
	return e, ok
}

// Snapshot copies the current map.
func (o *Overlay) Snapshot() map[string]models.CheckInOverlayEntry {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make(map[string]models.CheckInOverlayEntry, len(o.entries))
	for k, v := range o.entries {
		out[k] = v
	}
	return out
}

// Len is the number of entries.
func (o *Overlay) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

// Resolve returns the arrival fields shown for g. The overlay entry wins field by field; without
// one, the guard name comes from looking up g.ReceivedBy in guards and the time from the server.
// Anything still missing is "N/A".
func (o *Overlay) Resolve(g models.RawGuest, guards map[string]models.Guard) models.ArrivalDisplay {
	d := models.ArrivalDisplay{GuardName: models.NotAvailable, ArrivedAt: models.NotAvailable}

	if guard, ok := guards[g.ReceivedBy]; ok && g.ReceivedBy != "" && guard.Name != "" {
		d.GuardName = guard.Name
	}
	if g.ArrivedAt != "" {
		d.ArrivedAt = g.ArrivedAt
	}

	if e, ok := o.Get(g.Code); ok {
		if e.GuardName != "" {
			d.GuardName = e.GuardName
		}
		if e.ArrivedAt != "" {
			d.ArrivedAt = e.ArrivedAt
		}
	}
	return d
}

// Resolver binds Resolve to a guard roster.
func (o *Overlay) Resolver(roster []models.Guard) visits.ArrivalResolver {
	guards := make(map[string]models.Guard, len(roster))
	for _, g := range roster {
		guards[g.Code] = g
	}
	return func(g models.RawGuest) models.ArrivalDisplay {
		return o.Resolve(g, guards)
	}
}

// Confirm marks entries whose guest the server now reports as arrived. It returns how many
// entries changed.
func (o *Overlay) Confirm(ctx context.Context, arrived []models.RawGuest) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	changed := 0
	for _, g := range arrived {
		e, ok := o.entries[g.Code]
		if !ok || e.Confirmed || !g.Arrived() {
			continue
		}
		e.Confirmed = true
		o.entries[g.Code] = e
		changed++
	}
	if changed > 0 {
		o.persist(ctx)
	}
	return changed
}

// EvictOlderThan drops entries captured more than maxAge ago. A non-positive maxAge disables it.
func (o *Overlay) EvictOlderThan(ctx context.Context, maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := o.now().Add(-maxAge)

	o.mu.Lock()
	defer o.mu.Unlock()

	evicted := 0
	for code, e := range o.entries {
		if !e.CapturedAt.IsZero() && e.CapturedAt.Before(cutoff) {
			delete(o.entries, code)
			evicted++
		}
	}
	if evicted > 0 {
		o.persist(ctx)
		o.logger.Info("evicted stale check-in entries", zap.Int("count", evicted))
	}
	return evicted
}

// PruneMissing drops entries whose guest code appears in none of lists. Only call it with lists
// from fetches that all succeeded.
func (o *Overlay) PruneMissing(ctx context.Context, lists ...[]models.RawGuest) int {
	present := make(map[string]struct{})
	for _, list := range lists {
		for _, g := range list {
			present[g.Code] = struct{}{}
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	evicted := 0
	for code := range o.entries {
		if _, ok := present[code]; !ok {
			delete(o.entries, code)
			evicted++
		}
	}
	if evicted > 0 {
		o.persist(ctx)
		o.logger.Info("evicted check-in entries for unknown guests", zap.Int("count", evicted))
	}
	return evicted
}
