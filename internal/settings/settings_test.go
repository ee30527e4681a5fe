package settings

import (
	"context"
	"testing"

	"hearthwarden/internal/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(store)
}

func TestDefaultsWhenUnset(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	enabled, err := svc.Bool(ctx, KeyXPEnabled)
	if err != nil {
		t.Fatalf("bool: %v", err)
	}
	if enabled {
		t.Fatalf("xp system should default to disabled")
	}

	value, err := svc.Get(ctx, KeyMutedRole)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != "" {
		t.Fatalf("expected empty default, got %q", value)
	}
}

func TestColorRoleMapRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.SetColorRole(ctx, "crimson", "r1"); err != nil {
		t.Fatalf("set color: %v", err)
	}
	if err := svc.SetColorRole(ctx, "azure", "r2"); err != nil {
		t.Fatalf("set color: %v", err)
	}
	if err := svc.RemoveColorRole(ctx, "crimson"); err != nil {
		t.Fatalf("remove color: %v", err)
	}

	roles, err := svc.ColorRoles(ctx)
	if err != nil {
		t.Fatalf("color roles: %v", err)
	}
	if len(roles) != 1 || roles["azure"] != "r2" {
		t.Fatalf("unexpected map: %v", roles)
	}
}

func TestCorruptRoleMapFallsBackEmpty(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if err := svc.Set(ctx, KeyEmblemRoles, "not-json"); err != nil {
		t.Fatalf("set: %v", err)
	}
	roles, err := svc.EmblemRoles(ctx)
	if err != nil {
		t.Fatalf("emblem roles: %v", err)
	}
	if len(roles) != 0 {
		t.Fatalf("expected empty map, got %v", roles)
	}
}
