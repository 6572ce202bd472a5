// Package notifications holds the capped, persisted log of live-update events shown in the
// console's notification panel.
package notifications

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"gatedesk/db"
	"gatedesk/models"
)

// DefaultCap is the number of entries kept.
const DefaultCap = 50

// Change is emitted after every mutation.
type Change struct {
	Version uint64 `json:"version"`
	Total   int    `json:"total"`
	Unread  int    `json:"unread"`
}

// Log is newest-first and never longer than its cap.
type Log struct {
	mu      sync.Mutex
	entries []models.Notification
	version uint64
	subs    map[chan Change]struct{}
	entropy io.Reader
	lastMs  uint64

	cap    int
	kv     db.KV
	logger *zap.Logger
	now    func() time.Time
}

// New returns an empty log. Call Load to restore persisted entries.
func New(kv db.KV, logger *zap.Logger, capacity int, now func() time.Time) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capacity <= 0 {
		capacity = DefaultCap
	}
	if now == nil {
		now = time.Now
	}
	return &Log{
		subs:    make(map[chan Change]struct{}),
		entropy: ulid.Monotonic(rand.Reader, 0),
		cap:     capacity,
		kv:      kv,
		logger:  logger.Named("notifications"),
		now:     now,
	}
}

// Load restores the persisted sequence. Unreadable or corrupt data yields an empty log.
func (l *Log) Load(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	if l.kv == nil {
		return
	}

	raw, err := l.kv.Get(ctx, db.KeyNotifications)
	if err != nil {
		l.logger.Warn("failed to read notifications", zap.Error(err))
		return
	}
	if raw == nil {
		return
	}

	var stored []models.Notification
	if err := json.Unmarshal(raw, &stored); err != nil {
		l.logger.Warn("discarding corrupt notifications", zap.Error(err))
		return
	}
	if len(stored) > l.cap {
		stored = stored[:l.cap]
	}
	l.entries = stored
	// Fresh entropy cannot continue a restored sequence within the same millisecond.
	for _, e := range stored {
		if id, err := ulid.Parse(e.ID); err == nil && id.Time()+1 > l.lastMs {
			l.lastMs = id.Time() + 1
		}
	}
}

// NewID returns a time-ordered identifier. IDs never decrease.
func (l *Log) NewID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.newIDLocked()
}

// newIDLocked never stamps an ID earlier than the last one issued or loaded, so a clock that
// steps backwards still yields increasing IDs.
func (l *Log) newIDLocked() string {
	ms := max(ulid.Timestamp(l.now()), l.lastMs)
	l.lastMs = ms
	return ulid.MustNew(ms, l.entropy).String()
}

// Append puts n at the front, evicting the oldest entries beyond the cap. Missing ID and
// timestamp are filled in. An entry whose ID is already present is ignored and Append
// returns false.
func (l *Log) Append(ctx context.Context, n models.Notification) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n.ID == "" {
		n.ID = l.newIDLocked()
	}
	for _, e := range l.entries {
		if e.ID == n.ID {
			return false
		}
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = l.now().UTC()
	}
	if n.Details == nil {
		n.Details = []models.NotificationDetail{}
	}

	entries := make([]models.Notification, 0, min(len(l.entries)+1, l.cap))
	entries = append(entries, n)
	entries = append(entries, l.entries...)
	if len(entries) > l.cap {
		entries = entries[:l.cap]
	}
	l.entries = entries

	l.commit(ctx)
	return true
}

// MarkRead flags one entry as read. It is a no-op when the entry is missing or already read.
func (l *Log) MarkRead(ctx context.Context, id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].ID != id {
			continue
		}
		if l.entries[i].Read {
			return false
		}
		l.entries[i].Read = true
		l.commit(ctx)
		return true
	}
	return false
}

// MarkAllRead flags every entry as read.
func (l *Log) MarkAllRead(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		l.entries[i].Read = true
	}
	l.commit(ctx)
}

// ClearAll drops every entry.
func (l *Log) ClearAll(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	l.commit(ctx)
}

// List returns a copy of the entries, newest first.
func (l *Log) List() []models.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.Notification, len(l.entries))
	copy(out, l.entries)
	return out
}

// UnreadCount counts unread entries.
func (l *Log) UnreadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unreadLocked()
}

func (l *Log) unreadLocked() int {
	n := 0
	for _, e := range l.entries {
		if !e.Read {
			n++
		}
	}
	return n
}

// Current describes the log as of now, in the form subscribers receive.
func (l *Log) Current() Change {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Change{Version: l.version, Total: len(l.entries), Unread: l.unreadLocked()}
}

// Subscribe returns a channel that receives the latest Change after every mutation. Slow
// readers only ever see the newest change. Call the returned func to unsubscribe.
func (l *Log) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, 1)

	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()

	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, ok := l.subs[ch]; ok {
			delete(l.subs, ch)
			close(ch)
		}
	}
}

// commit persists the sequence and notifies subscribers. mu must be held.
func (l *Log) commit(ctx context.Context) {
	l.version++

	if l.kv != nil {
		entries := l.entries
		if entries == nil {
			entries = []models.Notification{}
		}
		raw, err := json.Marshal(entries)
		if err != nil {
			l.logger.Warn("failed to encode notifications", zap.Error(err))
		} else if err := l.kv.Set(ctx, db.KeyNotifications, raw); err != nil {
			l.logger.Warn("failed to persist notifications", zap.Error(err))
		}
	}

	change := Change{Version: l.version, Total: len(l.entries), Unread: l.unreadLocked()}
	for ch := range l.subs {
		select {
		case ch <- change:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- change
		}
	}
}
