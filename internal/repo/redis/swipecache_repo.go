package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/avoronkov/flare/internal/domain/enums"
)

// SwipeCacheRepo mirrors "already decided" targets per user for fast feed
// exclusion. It is a derived view over the swipes table: additive only,
// allowed to lag, and rebuildable from the authoritative store at any time.
// Match detection never reads it.
type SwipeCacheRepo struct {
	client *goredis.Client
}

func NewSwipeCacheRepo(client *goredis.Client) *SwipeCacheRepo {
	return &SwipeCacheRepo{client: client}
}

func swipeCacheKey(userID string) string {
	return "swiped:" + userID
}

func (r *SwipeCacheRepo) Remember(ctx context.Context, userID, targetID string, decision enums.Decision) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID == "" || targetID == "" || !decision.Valid() {
		return fmt.Errorf("invalid swipe cache payload")
	}

	if err := r.client.HSet(ctx, swipeCacheKey(userID), targetID, string(decision)).Err(); err != nil {
		return fmt.Errorf("remember swipe: %w", err)
	}

	return nil
}

func (r *SwipeCacheRepo) HasDecided(ctx context.Context, userID, targetID string) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if userID == "" || targetID == "" {
		return false, fmt.Errorf("invalid swipe cache lookup")
	}

	decided, err := r.client.HExists(ctx, swipeCacheKey(userID), targetID).Result()
	if err != nil {
		return false, fmt.Errorf("check decided target: %w", err)
	}

	return decided, nil
}

// AllDecidedTargets returns every target the user has decided on, with the
// latest cached decision.
func (r *SwipeCacheRepo) AllDecidedTargets(ctx context.Context, userID string) (map[string]enums.Decision, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if userID == "" {
		return nil, fmt.Errorf("invalid user id")
	}

	fields, err := r.client.HGetAll(ctx, swipeCacheKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load decided targets: %w", err)
	}

	decided := make(map[string]enums.Decision, len(fields))
	for target, decision := range fields {
		decided[target] = enums.Decision(decision)
	}

	return decided, nil
}

// Rebuild replaces the user's cache with the given entries in one shot.
// Used to reconstruct the derived view from the remote store.
func (r *SwipeCacheRepo) Rebuild(ctx context.Context, userID string, entries map[string]enums.Decision) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if userID == "" {
		return fmt.Errorf("invalid user id")
	}

	key := swipeCacheKey(userID)
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(entries) > 0 {
		values := make([]any, 0, len(entries)*2)
		for target, decision := range entries {
			values = append(values, target, string(decision))
		}
		pipe.HSet(ctx, key, values...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rebuild swipe cache: %w", err)
	}

	return nil
}
