package ledger

import (
	"context"
	"testing"
	"time"

	"hearthwarden/internal/storage"

	"go.uber.org/zap"
)

type fakeClock struct{ now time.Time }

func (f fakeClock) Now() time.Time { return f.now }

func newTestLedger(t *testing.T) (*Service, *storage.Store) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(store, zap.NewNop()), store
}

func TestAddXPAppliesMultiplierFloor(t *testing.T) {
	svc, store := newTestLedger(t)
	ctx := context.Background()

	if err := store.SetBoosterPerks(ctx, "u1", 1.5, 1.5, 0.05, 1, time.Unix(0, 0)); err != nil {
		t.Fatalf("set perks: %v", err)
	}

	applied, err := svc.AddXP(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("add xp: %v", err)
	}
	if applied != 15 {
		t.Fatalf("expected 15, got %d", applied)
	}

	applied, err = svc.AddXP(ctx, "u1", 11)
	if err != nil {
		t.Fatalf("add xp: %v", err)
	}
	if applied != 16 {
		t.Fatalf("expected floor(16.5)=16, got %d", applied)
	}

	xp, err := svc.XP(ctx, "u1")
	if err != nil {
		t.Fatalf("xp: %v", err)
	}
	if xp != 31 {
		t.Fatalf("expected 31 total, got %d", xp)
	}
}

func TestXPLockSuppressesGainUntilExpiry(t *testing.T) {
	svc, _ := newTestLedger(t)
	ctx := context.Background()

	start := time.Unix(100000, 0)
	svc.WithClock(fakeClock{now: start})
	if err := svc.Lock(ctx, "u1", 24*time.Hour); err != nil {
		t.Fatalf("lock: %v", err)
	}

	applied, err := svc.AddXP(ctx, "u1", 50)
	if err != nil {
		t.Fatalf("add xp: %v", err)
	}
	if applied != 0 {
		t.Fatalf("locked user gained %d", applied)
	}

	svc.WithClock(fakeClock{now: start.Add(25 * time.Hour)})
	applied, err = svc.AddXP(ctx, "u1", 50)
	if err != nil {
		t.Fatalf("add xp: %v", err)
	}
	if applied != 50 {
		t.Fatalf("expected 50 after lock expiry, got %d", applied)
	}
}

func TestApplyBatchPartialResilience(t *testing.T) {
	svc, store := newTestLedger(t)
	ctx := context.Background()

	// Closing the store makes every flush entry fail; they must all be
	// reported back rather than dropped.
	pending := map[string]int{"u1": 10, "u2": 20}
	store.Close()
	failed := svc.ApplyBatch(ctx, pending)
	if len(failed) != 2 {
		t.Fatalf("expected 2 failed entries, got %d", len(failed))
	}
	if failed["u1"] != 10 || failed["u2"] != 20 {
		t.Fatalf("failed deltas lost: %v", failed)
	}
}

func TestApplyBatchCreditsEveryUser(t *testing.T) {
	svc, _ := newTestLedger(t)
	ctx := context.Background()

	failed := svc.ApplyBatch(ctx, map[string]int{"u1": 10, "u2": 20})
	if len(failed) != 0 {
		t.Fatalf("unexpected failures: %v", failed)
	}

	for userID, want := range map[string]int{"u1": 10, "u2": 20} {
		xp, err := svc.XP(ctx, userID)
		if err != nil {
			t.Fatalf("xp: %v", err)
		}
		if xp != want {
			t.Fatalf("user %s expected %d, got %d", userID, want, xp)
		}
	}
}

func TestAddXPSkipsRestrictedUser(t *testing.T) {
	svc, store := newTestLedger(t)
	ctx := context.Background()

	if err := store.SetRestricted(ctx, "u1", true); err != nil {
		t.Fatalf("restrict: %v", err)
	}

	applied, err := svc.AddXP(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("add xp: %v", err)
	}
	if applied != 0 {
		t.Fatalf("restricted user gained %d xp", applied)
	}
	xp, err := svc.XP(ctx, "u1")
	if err != nil {
		t.Fatalf("xp: %v", err)
	}
	if xp != 0 {
		t.Fatalf("restricted user balance = %d, want 0", xp)
	}
}
