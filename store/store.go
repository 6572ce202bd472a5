// Package store is the dashboard's state container. It owns the raw guest lists fetched from the
// upstream, the views derived from them, and the fetch state of every list. Readers get immutable
// snapshots; writers are the documented actions only.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"gatedesk/models"
	"gatedesk/overlay"
	"gatedesk/visits"
)

var (
	ErrNoSession = errors.New("no operator is signed in")
	ErrClosed    = errors.New("store is closed")
)

// Transport is the upstream visitor API.
type Transport interface {
	FetchAllGuests(ctx context.Context) ([]models.RawGuest, error)
	FetchPendingGuests(ctx context.Context) ([]models.RawGuest, error)
	FetchArrivedGuests(ctx context.Context) ([]models.RawGuest, error)
	FetchAllGuards(ctx context.Context) ([]models.Guard, error)
	SubmitCheckIn(ctx context.Context, guestCode, guardCode string) (models.CheckInReceipt, error)
}

// IdentityProvider reports the operator signed in at this console.
type IdentityProvider interface {
	Current(ctx context.Context) (models.Identity, bool)
}

// Kind names one fetched list.
type Kind string

const (
	KindAll     Kind = "all"
	KindPending Kind = "pending"
	KindArrived Kind = "arrived"
	KindGuards  Kind = "guards"
)

func (k Kind) isGuest() bool {
	return k == KindAll || k == KindPending || k == KindArrived
}

// Status is the state of one fetch kind.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// FetchState is the status and last error of one fetch kind.
type FetchState struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Snapshot is a read-only view of the store. Slices are shared between snapshots and must not
// be modified.
type Snapshot struct {
	Version uint64 `json:"version"`

	AllGuests     []models.RawGuest `json:"allGuests"`
	PendingGuests []models.RawGuest `json:"pendingGuests"`
	ArrivedGuests []models.RawGuest `json:"arrivedGuests"`

	TodayVisits      []models.Visit     `json:"todayVisits"`
	ActiveVisitors   []models.RawGuest  `json:"activeVisitors"`
	PendingVisitors  []models.RawGuest  `json:"pendingVisitors"`
	VisitorChartData models.ChartSeries `json:"visitorChartData"`

	IsLoading bool   `json:"isLoading"`
	Error     string `json:"error,omitempty"`

	Guards        []models.Guard `json:"guards"`
	GuardsLoading bool           `json:"guardsLoading"`
	GuardsError   string         `json:"guardsError,omitempty"`

	Fetches     map[Kind]FetchState `json:"fetches"`
	LastRefresh time.Time           `json:"lastRefresh,omitzero"`
}

// Options configures a Store.
type Options struct {
	Transport     Transport
	Session       IdentityProvider
	Overlay       *overlay.Overlay
	Logger        *zap.Logger
	Now           func() time.Time
	Location      *time.Location
	SettleDelay   time.Duration
	OverlayMaxAge time.Duration
}

// Store is safe for concurrent use. Each fetch settles under the lock, so the final state of a
// kind is whichever fetch of that kind resolved last.
type Store struct {
	mu       sync.Mutex
	state    Snapshot
	inflight map[Kind]int
	subs     map[chan uint64]struct{}
	closed   bool

	transport     Transport
	session       IdentityProvider
	overlay       *overlay.Overlay
	logger        *zap.Logger
	now           func() time.Time
	loc           *time.Location
	settleDelay   time.Duration
	overlayMaxAge time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a store with empty lists and idle fetches.
func New(opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Overlay == nil {
		opts.Overlay = overlay.New(nil, opts.Logger, opts.Now)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		inflight:      make(map[Kind]int),
		subs:          make(map[chan uint64]struct{}),
		transport:     opts.Transport,
		session:       opts.Session,
		overlay:       opts.Overlay,
		logger:        opts.Logger.Named("store"),
		now:           opts.Now,
		loc:           opts.Location,
		settleDelay:   opts.SettleDelay,
		overlayMaxAge: opts.OverlayMaxAge,
		ctx:           ctx,
		cancel:        cancel,
	}

	s.state = Snapshot{
		AllGuests:     []models.RawGuest{},
		PendingGuests: []models.RawGuest{},
		ArrivedGuests: []models.RawGuest{},
		Guards:        []models.Guard{},
		Fetches: map[Kind]FetchState{
			KindAll:     {Status: StatusIdle},
			KindPending: {Status: StatusIdle},
			KindArrived: {Status: StatusIdle},
			KindGuards:  {Status: StatusIdle},
		},
	}
	s.deriveLocked()
	return s
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.state
	snap.Fetches = make(map[Kind]FetchState, len(s.state.Fetches))
	for k, v := range s.state.Fetches {
		snap.Fetches[k] = v
	}
	return snap
}

// Overlay exposes the check-in overlay used to resolve arrival fields.
func (s *Store) Overlay() *overlay.Overlay {
	return s.overlay
}

// Location is the time zone upstream dates are read in.
func (s *Store) Location() *time.Location {
	return s.loc
}

// Now is the store's clock in its location.
func (s *Store) Now() time.Time {
	return s.now().In(s.loc)
}

// Subscribe returns a channel receiving the newest state version after every change.
// Slow readers skip intermediate versions. Call the returned func to unsubscribe. After Close
// the channel is already closed.
func (s *Store) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[ch]; ok {
			delete(s.subs, ch)
			close(ch)
		}
	}
}

// Close stops background work. Fetches that settle afterwards are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// publishLocked bumps the version and wakes subscribers. mu must be held.
func (s *Store) publishLocked() {
	s.state.Version++
	v := s.state.Version
	for ch := range s.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

// RefreshChartData recomputes every derived view from the raw lists.
func (s *Store) RefreshChartData() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.deriveLocked()
	s.publishLocked()
}

// deriveLocked recomputes the derived views in full. The "all" list is preferred; while it is
// empty the arrived and pending lists stand in. mu must be held.
func (s *Store) deriveLocked() {
	now := s.now().In(s.loc)
	st := &s.state

	st.TodayVisits = visits.FilterUpcoming24Hours(visits.ToVisits(st.AllGuests, s.loc), now)

	if len(st.AllGuests) > 0 {
		st.ActiveVisitors = visits.ActiveVisitors(st.AllGuests)
		st.PendingVisitors = visits.PendingVisitors(st.AllGuests)
		st.VisitorChartData = visits.Aggregate(st.AllGuests, now)
		return
	}
	st.ActiveVisitors = visits.ActiveVisitors(st.ArrivedGuests)
	st.PendingVisitors = visits.PendingVisitors(st.PendingGuests)
	st.VisitorChartData = visits.Aggregate(st.ArrivedGuests, now)
}

// Visits is the visits page view: upcoming guests and arrived guests within a period.
type Visits struct {
	Filter      visits.Filter  `json:"filter"`
	FilterLabel string         `json:"filterLabel"`
	Scheduled   []models.Visit `json:"scheduled"`
	Active      []models.Visit `json:"active"`
}

// Visits computes the scheduled and active buckets from the current lists.
func (s *Store) Visits(f visits.Filter) Visits {
	snap := s.Snapshot()
	now := s.Now()

	return Visits{
		Filter:      f,
		FilterLabel: f.Label(),
		Scheduled:   visits.ScheduledBucket(snap.AllGuests, now),
		Active:      visits.ActiveBucket(snap.ArrivedGuests, f, now, s.overlay.Resolver(snap.Guards)),
	}
}

// FindGuest looks code up in the all, arrived and pending lists, in that order.
func (s *Store) FindGuest(code string) (models.RawGuest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, list := range [][]models.RawGuest{s.state.AllGuests, s.state.ArrivedGuests, s.state.PendingGuests} {
		for _, g := range list {
			if g.Code == code {
				return g, true
			}
		}
	}
	return models.RawGuest{}, false
}
