package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gatedesk/models"
)

// FetchAllGuests replaces the "all" list.
func (s *Store) FetchAllGuests(ctx context.Context) error { return s.Fetch(ctx, KindAll) }

// FetchPendingGuests replaces the pending list.
func (s *Store) FetchPendingGuests(ctx context.Context) error { return s.Fetch(ctx, KindPending) }

// FetchArrivedGuests replaces the arrived list and confirms matching overlay entries.
func (s *Store) FetchArrivedGuests(ctx context.Context) error { return s.Fetch(ctx, KindArrived) }

// FetchAllGuards replaces the guard roster.
func (s *Store) FetchAllGuards(ctx context.Context) error { return s.Fetch(ctx, KindGuards) }

// Fetch loads one list from the transport. The kind is loading until its last in-flight fetch
// settles. On success the list is replaced wholesale and every derived view recomputed; on
// failure the previous list is kept and the error recorded. The error is also returned.
func (s *Store) Fetch(ctx context.Context, kind Kind) error {
	if !s.begin(kind) {
		return ErrClosed
	}

	var (
		guests []models.RawGuest
		guards []models.Guard
		err    error
	)
	switch kind {
	case KindAll:
		guests, err = s.transport.FetchAllGuests(ctx)
	case KindPending:
		guests, err = s.transport.FetchPendingGuests(ctx)
	case KindArrived:
		guests, err = s.transport.FetchArrivedGuests(ctx)
	case KindGuards:
		guards, err = s.transport.FetchAllGuards(ctx)
	default:
		err = fmt.Errorf("unknown fetch kind %q", kind)
	}

	if !s.settle(kind, guests, guards, err) {
		return ErrClosed
	}
	if err != nil {
		return fmt.Errorf("fetch %s: %w", kind, err)
	}

	if kind == KindArrived {
		s.overlay.Confirm(context.WithoutCancel(ctx), guests)
	}
	return nil
}

func (s *Store) begin(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.inflight[kind]++
	s.state.Fetches[kind] = FetchState{Status: StatusLoading}
	if kind.isGuest() {
		s.state.IsLoading = true
		s.state.Error = ""
	} else {
		s.state.GuardsLoading = true
		s.state.GuardsError = ""
	}
	s.publishLocked()
	return true
}

// settle applies a fetch result. It reports false when the store was closed meanwhile.
func (s *Store) settle(kind Kind, guests []models.RawGuest, guards []models.Guard, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inflight[kind]--
	if s.closed {
		s.logger.Debug("ignoring fetch settled after close", zap.String("kind", string(kind)))
		return false
	}

	fs := FetchState{Status: StatusSucceeded}
	if err != nil {
		fs = FetchState{Status: StatusFailed, Error: errorMessage(err)}
		s.logger.Error("fetch failed", zap.String("kind", string(kind)), zap.Error(err))
	} else {
		s.logger.Debug("fetch succeeded", zap.String("kind", string(kind)),
			zap.Int("guests", len(guests)), zap.Int("guards", len(guards)))
	}
	if s.inflight[kind] > 0 {
		fs.Status = StatusLoading
	}
	s.state.Fetches[kind] = fs

	if kind.isGuest() {
		if err != nil {
			s.state.Error = fs.Error
		} else {
			if guests == nil {
				guests = []models.RawGuest{}
			}
			switch kind {
			case KindAll:
				s.state.AllGuests = guests
			case KindPending:
				s.state.PendingGuests = guests
			case KindArrived:
				s.state.ArrivedGuests = guests
			}
			s.deriveLocked()
		}
		s.state.IsLoading = s.inflight[KindAll]+s.inflight[KindPending]+s.inflight[KindArrived] > 0
	} else {
		if err != nil {
			s.state.GuardsError = fs.Error
		} else {
			if guards == nil {
				guards = []models.Guard{}
			}
			s.state.Guards = guards
		}
		s.state.GuardsLoading = s.inflight[KindGuards] > 0
	}

	s.publishLocked()
	return true
}

// errorMessage is the human-readable text recorded for a failed fetch: the innermost error.
func errorMessage(err error) string {
	for {
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		inner := u.Unwrap()
		if inner == nil {
			break
		}
		err = inner
	}
	return err.Error()
}
