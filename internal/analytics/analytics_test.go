package analytics

import (
	"context"
	"testing"
	"time"

	"hearthwarden/internal/storage"
)

func TestReportCountsByActionAndModerator(t *testing.T) {
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	now := time.Now()
	entries := []storage.ModLog{
		{ActionType: "warn", ModeratorID: "alice", TargetID: "t1", CreatedAt: now},
		{ActionType: "warn", ModeratorID: "bob", TargetID: "t2", CreatedAt: now},
		{ActionType: "ban", ModeratorID: "alice", TargetID: "t3", CreatedAt: now},
		{ActionType: "kick", ModeratorID: "alice", TargetID: "t4", CreatedAt: now.Add(-48 * time.Hour)},
	}
	for _, entry := range entries {
		if _, err := store.AddModLog(ctx, entry); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	report, err := New(store).Report(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Total != 3 {
		t.Fatalf("total = %d, want 3 (old entry excluded)", report.Total)
	}
	if report.ByAction["warn"] != 2 || report.ByAction["ban"] != 1 {
		t.Fatalf("by action = %v", report.ByAction)
	}
	if report.ByModerator["alice"] != 2 {
		t.Fatalf("by moderator = %v", report.ByModerator)
	}
}
