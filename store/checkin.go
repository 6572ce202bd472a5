package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gatedesk/models"
)

const localArrivalLayout = "3:04:05 PM"

// CheckInResult describes an accepted check-in.
type CheckInResult struct {
	Guest     models.RawGuest `json:"guest"`
	Operator  models.Identity `json:"operator"`
	ArrivedAt string          `json:"arrivedAt"`
}

// CheckIn submits a check-in of guestCode by the signed-in operator.
//
// Once the upstream accepts it, a provisional overlay entry is written so the arrival shows
// immediately. After the settle delay the arrived, pending and all lists are re-fetched in the
// background; the arrived fetch is what confirms the overlay entry.
func (s *Store) CheckIn(ctx context.Context, guestCode string) (CheckInResult, error) {
	if s.session == nil {
		return CheckInResult{}, ErrNoSession
	}
	operator, ok := s.session.Current(ctx)
	if !ok {
		return CheckInResult{}, ErrNoSession
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return CheckInResult{}, ErrClosed
	}

	receipt, err := s.transport.SubmitCheckIn(ctx, guestCode, operator.Code)
	if err != nil {
		s.logger.Error("check-in rejected", zap.String("guest", guestCode), zap.Error(err))
		return CheckInResult{}, fmt.Errorf("check in %s: %w", guestCode, err)
	}

	arrivedAt := receipt.ArrivedAt
	if arrivedAt == "" {
		arrivedAt = s.Now().Format(localArrivalLayout)
	}

	s.overlay.Record(context.WithoutCancel(ctx), guestCode, models.CheckInOverlayEntry{
		GuardCode: operator.Code,
		GuardName: operator.Name,
		ArrivedAt: arrivedAt,
	})

	guest, found := s.FindGuest(guestCode)
	if !found {
		guest = models.RawGuest{Code: guestCode}
	}

	s.mu.Lock()
	if !s.closed {
		s.wg.Add(1)
		go s.reconcileAfterCheckIn(guestCode)
	}
	s.mu.Unlock()

	s.logger.Info("guest checked in",
		zap.String("guest", guestCode),
		zap.String("guard", operator.Code),
		zap.String("arrivedAt", arrivedAt))

	return CheckInResult{Guest: guest, Operator: operator, ArrivedAt: arrivedAt}, nil
}

func (s *Store) reconcileAfterCheckIn(guestCode string) {
	defer s.wg.Done()

	if s.settleDelay > 0 {
		timer := time.NewTimer(s.settleDelay)
		defer timer.Stop()
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		}
	}

	for _, kind := range []Kind{KindArrived, KindPending, KindAll} {
		if err := s.Fetch(s.ctx, kind); err != nil {
			s.logger.Warn("post check-in refetch failed",
				zap.String("guest", guestCode), zap.String("kind", string(kind)), zap.Error(err))
			if s.ctx.Err() != nil {
				return
			}
		}
	}
}

// Wait blocks until background check-in reconciliation has finished.
func (s *Store) Wait() {
	s.wg.Wait()
}
