package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// refreshOrder is the order a manual or periodic refresh issues its fetches in.
var refreshOrder = []Kind{KindArrived, KindGuards, KindAll, KindPending}

// Refresh re-fetches every list in refreshOrder. A failing fetch does not stop the others;
// all failures are returned joined. Overlapping refreshes are allowed.
//
// Afterwards stale overlay entries are evicted, and when every guest list was fetched
// successfully, entries for guests missing from all of them are dropped too.
func (s *Store) Refresh(ctx context.Context) error {
	var errs []error
	guestFailures := 0

	for _, kind := range refreshOrder {
		if err := s.Fetch(ctx, kind); err != nil {
			if errors.Is(err, ErrClosed) {
				return err
			}
			errs = append(errs, err)
			if kind.isGuest() {
				guestFailures++
			}
		}
	}

	persistCtx := context.WithoutCancel(ctx)
	s.overlay.EvictOlderThan(persistCtx, s.overlayMaxAge)
	if guestFailures == 0 {
		snap := s.Snapshot()
		s.overlay.PruneMissing(persistCtx, snap.AllGuests, snap.PendingGuests, snap.ArrivedGuests)
	}

	s.mu.Lock()
	if !s.closed {
		s.state.LastRefresh = s.now()
		s.publishLocked()
	}
	s.mu.Unlock()

	err := errors.Join(errs...)
	if err != nil {
		s.logger.Warn("refresh finished with errors", zap.Int("failed", len(errs)), zap.Error(err))
	} else {
		s.logger.Info("refresh finished")
	}
	return err
}

// Poll refreshes immediately and then every interval until ctx is done or the store is closed.
func (s *Store) Poll(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.ctx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	_ = s.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("poller stopped")
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); errors.Is(err, ErrClosed) {
				return
			}
		}
	}
}
