package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/avoronkov/flare/internal/domain/enums"
)

func newTestCache(t *testing.T) *SwipeCacheRepo {
	t.Helper()

	srv := miniredis.RunT(t)
	client := NewClient(srv.Addr(), "", 0)
	t.Cleanup(func() {
		_ = client.Close()
	})

	return NewSwipeCacheRepo(client)
}

func TestRememberAndHasDecided(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	decided, err := cache.HasDecided(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("has decided: %v", err)
	}
	if decided {
		t.Fatal("expected no decision before remember")
	}

	if err := cache.Remember(ctx, "alice", "bob", enums.DecisionLike); err != nil {
		t.Fatalf("remember: %v", err)
	}

	decided, err = cache.HasDecided(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("has decided: %v", err)
	}
	if !decided {
		t.Fatal("expected decision after remember")
	}
}

func TestRememberOverwritesDecision(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	if err := cache.Remember(ctx, "alice", "bob", enums.DecisionLike); err != nil {
		t.Fatalf("remember like: %v", err)
	}
	if err := cache.Remember(ctx, "alice", "bob", enums.DecisionDislike); err != nil {
		t.Fatalf("remember dislike: %v", err)
	}

	targets, err := cache.AllDecidedTargets(ctx, "alice")
	if err != nil {
		t.Fatalf("all decided targets: %v", err)
	}
	if len(targets) != 1 || targets["bob"] != enums.DecisionDislike {
		t.Fatalf("expected overwritten decision, got %v", targets)
	}
}

func TestAllDecidedTargetsEmptyUser(t *testing.T) {
	cache := newTestCache(t)

	targets, err := cache.AllDecidedTargets(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("all decided targets: %v", err)
	}
	if len(targets) != 0 {
		t.Fatalf("expected empty map, got %v", targets)
	}
}

func TestRebuildReplacesStaleEntries(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	if err := cache.Remember(ctx, "alice", "stale", enums.DecisionLike); err != nil {
		t.Fatalf("remember: %v", err)
	}

	err := cache.Rebuild(ctx, "alice", map[string]enums.Decision{
		"bob":   enums.DecisionLike,
		"carol": enums.DecisionSuperLike,
	})
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	targets, err := cache.AllDecidedTargets(ctx, "alice")
	if err != nil {
		t.Fatalf("all decided targets: %v", err)
	}
	if len(targets) != 2 {
		t.Fatalf("expected 2 targets after rebuild, got %v", targets)
	}
	if _, ok := targets["stale"]; ok {
		t.Fatal("rebuild must drop entries missing from the swipe log")
	}
	if targets["carol"] != enums.DecisionSuperLike {
		t.Fatalf("expected SUPER_LIKE for carol, got %s", targets["carol"])
	}
}

func TestRebuildToEmpty(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	if err := cache.Remember(ctx, "alice", "bob", enums.DecisionLike); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if err := cache.Rebuild(ctx, "alice", nil); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	targets, err := cache.AllDecidedTargets(ctx, "alice")
	if err != nil {
		t.Fatalf("all decided targets: %v", err)
	}
	if len(targets) != 0 {
		t.Fatalf("expected empty cache, got %v", targets)
	}
}
