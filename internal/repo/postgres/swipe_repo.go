package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avoronkov/flare/internal/domain/enums"
	"github.com/avoronkov/flare/internal/domain/model"
)

type SwipeRepo struct {
	pool *pgxpool.Pool
}

func NewSwipeRepo(pool *pgxpool.Pool) *SwipeRepo {
	return &SwipeRepo{pool: pool}
}

// Upsert writes the decision for (actor, target). The composite primary key
// makes repeated calls for the same pair overwrite the previous decision
// instead of inserting a second row.
func (r *SwipeRepo) Upsert(ctx context.Context, actorID, targetID string, decision enums.Decision, now time.Time) (model.Swipe, error) {
	if actorID == "" || targetID == "" || !decision.Valid() {
		return model.Swipe{}, fmt.Errorf("invalid swipe payload")
	}
	if r.pool == nil {
		return model.Swipe{}, fmt.Errorf("postgres pool is nil")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var swipe model.Swipe
	err := r.pool.QueryRow(ctx, `
INSERT INTO swipes (
	actor_id,
	target_id,
	decision,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (actor_id, target_id) DO UPDATE SET
	decision = EXCLUDED.decision,
	updated_at = EXCLUDED.updated_at
RETURNING actor_id, target_id, decision, created_at, updated_at
`, actorID, targetID, string(decision), now.UTC()).Scan(
		&swipe.ActorID,
		&swipe.TargetID,
		&swipe.Decision,
		&swipe.CreatedAt,
		&swipe.UpdatedAt,
	)
	if err != nil {
		return model.Swipe{}, fmt.Errorf("upsert swipe: %w", err)
	}

	return swipe, nil
}

func (r *SwipeRepo) Get(ctx context.Context, actorID, targetID string) (model.Swipe, error) {
	if actorID == "" || targetID == "" {
		return model.Swipe{}, fmt.Errorf("invalid swipe lookup payload")
	}
	if r.pool == nil {
		return model.Swipe{}, fmt.Errorf("postgres pool is nil")
	}

	var swipe model.Swipe
	err := r.pool.QueryRow(ctx, `
SELECT actor_id, target_id, decision, created_at, updated_at
FROM swipes
WHERE actor_id = $1 AND target_id = $2
`, actorID, targetID).Scan(
		&swipe.ActorID,
		&swipe.TargetID,
		&swipe.Decision,
		&swipe.CreatedAt,
		&swipe.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Swipe{}, ErrSwipeNotFound
		}
		return model.Swipe{}, fmt.Errorf("get swipe: %w", err)
	}

	return swipe, nil
}

// ListByActor returns every decision the actor has recorded. Used to rebuild
// the per-user swipe cache from the authoritative store.
func (r *SwipeRepo) ListByActor(ctx context.Context, actorID string) ([]model.Swipe, error) {
	if actorID == "" {
		return nil, fmt.Errorf("invalid actor id")
	}
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT actor_id, target_id, decision, created_at, updated_at
FROM swipes
WHERE actor_id = $1
ORDER BY updated_at ASC
`, actorID)
	if err != nil {
		return nil, fmt.Errorf("list swipes by actor: %w", err)
	}
	defer rows.Close()

	var swipes []model.Swipe
	for rows.Next() {
		var swipe model.Swipe
		if err := rows.Scan(
			&swipe.ActorID,
			&swipe.TargetID,
			&swipe.Decision,
			&swipe.CreatedAt,
			&swipe.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan swipe: %w", err)
		}
		swipes = append(swipes, swipe)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate swipes: %w", rows.Err())
	}

	return swipes, nil
}

type MutualLikePair struct {
	UserAID string
	UserBID string
}

// ListUnmatchedMutualLikes finds pairs with reciprocal positive decisions but
// no match row. A match write that failed after detection leaves such a pair
// behind; the reconcile job sweeps them up.
func (r *SwipeRepo) ListUnmatchedMutualLikes(ctx context.Context, limit int) ([]MutualLikePair, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 500
	}

	rows, err := r.pool.Query(ctx, `
SELECT s1.actor_id, s1.target_id
FROM swipes s1
JOIN swipes s2
	ON s2.actor_id = s1.target_id
	AND s2.target_id = s1.actor_id
WHERE
	s1.actor_id < s1.target_id
	AND s1.decision IN ('LIKE', 'SUPER_LIKE')
	AND s2.decision IN ('LIKE', 'SUPER_LIKE')
	AND NOT EXISTS (
		SELECT 1 FROM matches m
		WHERE m.id = s1.actor_id || '_' || s1.target_id
	)
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unmatched mutual likes: %w", err)
	}
	defer rows.Close()

	var pairs []MutualLikePair
	for rows.Next() {
		var pair MutualLikePair
		if err := rows.Scan(&pair.UserAID, &pair.UserBID); err != nil {
			return nil, fmt.Errorf("scan mutual like pair: %w", err)
		}
		pairs = append(pairs, pair)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate mutual like pairs: %w", rows.Err())
	}

	return pairs, nil
}
