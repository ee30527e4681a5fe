package xp

import (
	"testing"
	"time"

	"hearthwarden/internal/config"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func newTestAggregator() (*Aggregator, *fakeClock) {
	cfg := config.DefaultConfig().XP
	agg := New(cfg)
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	agg.WithClock(clock)
	agg.WithRoll(func(min, max int) int { return min })
	return agg, clock
}

func TestMessageXPOncePerCycle(t *testing.T) {
	agg, _ := newTestAggregator()

	if got := agg.RecordMessage("u1", 20); got != 10 {
		t.Fatalf("first message awarded %d, want 10", got)
	}
	if got := agg.RecordMessage("u1", 20); got != 0 {
		t.Fatalf("second message in same cycle awarded %d, want 0", got)
	}

	pending := agg.Drain()
	if pending["u1"] != 10 {
		t.Fatalf("pending for u1 = %d, want 10", pending["u1"])
	}

	if got := agg.RecordMessage("u1", 20); got != 10 {
		t.Fatalf("message after drain awarded %d, want 10", got)
	}
}

func TestShortMessageIgnored(t *testing.T) {
	agg, _ := newTestAggregator()

	if got := agg.RecordMessage("u1", 3); got != 0 {
		t.Fatalf("short message awarded %d, want 0", got)
	}
	if pending := agg.Drain(); pending != nil {
		t.Fatalf("expected empty pending, got %v", pending)
	}
}

func TestReactionPairDedup(t *testing.T) {
	agg, _ := newTestAggregator()

	if got := agg.RecordReaction("u1", "m1"); got != 5 {
		t.Fatalf("first reaction awarded %d, want 5", got)
	}
	if got := agg.RecordReaction("u1", "m1"); got != 0 {
		t.Fatalf("repeat reaction on same message awarded %d, want 0", got)
	}
	if got := agg.RecordReaction("u1", "m2"); got != 5 {
		t.Fatalf("reaction on second message awarded %d, want 5", got)
	}
	if got := agg.RecordReaction("u2", "m1"); got != 5 {
		t.Fatalf("second user on first message awarded %d, want 5", got)
	}
}

func TestReactionPerMessageCap(t *testing.T) {
	agg, _ := newTestAggregator()

	// Cap of 50 at 5 XP per reaction means ten distinct reactors pay out.
	for i := 0; i < 10; i++ {
		userID := "reactor" + string(rune('a'+i))
		if got := agg.RecordReaction(userID, "m1"); got != 5 {
			t.Fatalf("reactor %d awarded %d, want 5", i, got)
		}
	}
	if got := agg.RecordReaction("overflow", "m1"); got != 0 {
		t.Fatalf("reaction past message cap awarded %d, want 0", got)
	}
	if got := agg.RecordReaction("overflow", "m2"); got != 5 {
		t.Fatalf("capped user on fresh message awarded %d, want 5", got)
	}
}

func TestReactionDailyCapResetsNextDay(t *testing.T) {
	agg, clock := newTestAggregator()

	// Daily cap of 100 at 5 XP per reaction is twenty awards.
	for i := 0; i < 20; i++ {
		messageID := "m" + string(rune('a'+i))
		if got := agg.RecordReaction("u1", messageID); got != 5 {
			t.Fatalf("reaction %d awarded %d, want 5", i, got)
		}
	}
	if got := agg.RecordReaction("u1", "mz"); got != 0 {
		t.Fatalf("reaction past daily cap awarded %d, want 0", got)
	}

	clock.now = clock.now.Add(24 * time.Hour)
	if got := agg.RecordReaction("u1", "next-day"); got != 5 {
		t.Fatalf("reaction on next day awarded %d, want 5", got)
	}
}

func TestVoiceTickMinMembers(t *testing.T) {
	agg, _ := newTestAggregator()

	total := agg.VoiceTick(map[string][]string{
		"lonely": {"u1"},
		"lively": {"u2", "u3", "u4"},
	})
	if total != 6 {
		t.Fatalf("voice tick paid %d, want 6", total)
	}

	pending := agg.Drain()
	if pending["u1"] != 0 {
		t.Fatalf("solo member received %d, want 0", pending["u1"])
	}
	for _, userID := range []string{"u2", "u3", "u4"} {
		if pending[userID] != 2 {
			t.Fatalf("%s received %d, want 2", userID, pending[userID])
		}
	}
}

func TestRequeueRestoresFailedDeltas(t *testing.T) {
	agg, _ := newTestAggregator()

	agg.RecordMessage("u1", 20)
	pending := agg.Drain()
	agg.Requeue(pending)

	users, total := agg.PendingStats()
	if users != 1 || total != 10 {
		t.Fatalf("pending stats = (%d, %d), want (1, 10)", users, total)
	}
}

func TestDrainPrunesStaleDailyEntries(t *testing.T) {
	agg, clock := newTestAggregator()

	agg.RecordReaction("u1", "m1")
	clock.now = clock.now.Add(24 * time.Hour)
	agg.Drain()

	agg.mu.Lock()
	_, ok := agg.daily["u1"]
	agg.mu.Unlock()
	if ok {
		t.Fatal("stale daily entry survived drain")
	}
}

func TestResetDropsPending(t *testing.T) {
	agg, _ := newTestAggregator()

	agg.RecordMessage("u1", 20)
	agg.Reset()
	if users, total := agg.PendingStats(); users != 0 || total != 0 {
		t.Fatalf("pending stats after reset = (%d, %d), want (0, 0)", users, total)
	}
}
