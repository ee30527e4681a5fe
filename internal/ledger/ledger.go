// Package ledger holds the XP accounting rules: lock suppression,
// multiplier application, and batch flushes from the aggregator.
package ledger

import (
	"context"
	"math"
	"time"

	"hearthwarden/internal/storage"

	"go.uber.org/zap"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Service struct {
	store  *storage.Store
	logger *zap.Logger
	clock  Clock
}

func New(store *storage.Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger, clock: realClock{}}
}

func (s *Service) WithClock(clock Clock) {
	s.clock = clock
}

// AddXP credits raw points to a user. Restricted members and members
// under a live XP lock gain nothing; otherwise the user's multiplier is
// applied and the result floored. Returns the amount actually credited.
func (s *Service) AddXP(ctx context.Context, userID string, raw int) (int, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user.IsRestricted {
		return 0, nil
	}
	locked, err := s.checkLock(ctx, user)
	if err != nil {
		return 0, err
	}
	if locked {
		return 0, nil
	}

	multiplier := user.XPMultiplier
	if multiplier < 1.0 {
		multiplier = 1.0
	}
	final := int(math.Floor(float64(raw) * multiplier))
	if err := s.store.IncrementXP(ctx, userID, final); err != nil {
		return 0, err
	}
	return final, nil
}

// checkLock reports whether the user's XP lock is still live, clearing
// it once the deadline has passed.
func (s *Service) checkLock(ctx context.Context, user storage.UserRecord) (bool, error) {
	if !user.XPLocked {
		return false, nil
	}
	if user.XPLockUntil != nil && s.clock.Now().After(*user.XPLockUntil) {
		if err := s.store.ClearXPLock(ctx, user.UserID); err != nil {
			return true, err
		}
		return false, nil
	}
	return true, nil
}

// ApplyBatch flushes pending deltas. A failure on one user does not stop
// the rest; failed deltas are returned so the caller can re-queue them.
func (s *Service) ApplyBatch(ctx context.Context, pending map[string]int) map[string]int {
	failed := make(map[string]int)
	for userID, raw := range pending {
		if _, err := s.AddXP(ctx, userID, raw); err != nil {
			failed[userID] = raw
			s.logger.Warn("xp flush entry failed", zap.String("user_id", userID), zap.Int("amount", raw), zap.Error(err))
		}
	}
	return failed
}

func (s *Service) Lock(ctx context.Context, userID string, d time.Duration) error {
	return s.store.SetXPLock(ctx, userID, s.clock.Now().Add(d))
}

func (s *Service) XP(ctx context.Context, userID string) (int, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.XP, nil
}

func (s *Service) Rank(ctx context.Context, userID string) (int, int, error) {
	return s.store.Rank(ctx, userID)
}

func (s *Service) Leaderboard(ctx context.Context, limit int) ([]storage.LeaderboardEntry, error) {
	return s.store.Leaderboard(ctx, limit)
}

func (s *Service) ResetAllXP(ctx context.Context) error {
	return s.store.ResetAllXP(ctx)
}
