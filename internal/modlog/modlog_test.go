package modlog

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"hearthwarden/internal/storage"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewLogger(store, zap.NewNop())
}

func TestRecordAssignsCaseIDs(t *testing.T) {
	logger := newTestLogger(t)
	ctx := context.Background()

	first, err := logger.Record(ctx, ActionWarn, "mod", "target", "spam")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	second, err := logger.Record(ctx, ActionMute, "mod", "target", "again")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if second <= first {
		t.Fatalf("case IDs not increasing: %d then %d", first, second)
	}
}

func TestRecordNotifiesWithEntry(t *testing.T) {
	logger := newTestLogger(t)
	ctx := context.Background()

	var seen storage.ModLog
	logger.SetNotifier(func(_ context.Context, entry storage.ModLog) { seen = entry })

	id, err := logger.Record(ctx, ActionKick, "mod", "target", "rude")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if seen.ID != id || seen.ActionType != ActionKick || seen.TargetID != "target" {
		t.Fatalf("notifier saw %+v, want case %d kick of target", seen, id)
	}
}

func TestWarnCountOnlyCountsWarns(t *testing.T) {
	logger := newTestLogger(t)
	ctx := context.Background()

	logger.Record(ctx, ActionWarn, "mod", "target", "one")
	logger.Record(ctx, ActionWarn, "mod", "target", "two")
	logger.Record(ctx, ActionMute, "mod", "target", "noise")
	logger.Record(ctx, ActionWarn, "mod", "other", "unrelated")

	count, err := logger.WarnCount(ctx, "target")
	if err != nil {
		t.Fatalf("warn count: %v", err)
	}
	if count != 2 {
		t.Fatalf("warn count = %d, want 2", count)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	logger := newTestLogger(t)
	ctx := context.Background()

	logger.Record(ctx, ActionWarn, "mod", "target", "first")
	logger.Record(ctx, ActionBan, "mod", "target", "second")

	history, err := logger.History(ctx, "target", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Reason != "second" {
		t.Fatalf("history = %+v, want newest first", history)
	}
}
