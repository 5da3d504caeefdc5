package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avoronkov/flare/internal/domain/model"
)

type MatchRepo struct {
	pool *pgxpool.Pool
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

// Upsert creates the match under its canonical pair id. When both clients
// race to create the same match, the conflict clause turns the loser into a
// no-op and both observe the single surviving row. The returned flag reports
// whether this call inserted the row.
func (r *MatchRepo) Upsert(ctx context.Context, userID, otherID string, now time.Time) (model.Match, bool, error) {
	if userID == "" || otherID == "" || userID == otherID {
		return model.Match{}, false, fmt.Errorf("invalid match payload")
	}
	if r.pool == nil {
		return model.Match{}, false, fmt.Errorf("postgres pool is nil")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	userA, userB := model.SortPair(userID, otherID)
	matchID := model.PairKey(userID, otherID)

	var match model.Match
	err := r.pool.QueryRow(ctx, `
INSERT INTO matches (
	id,
	user_a_id,
	user_b_id,
	unread_a,
	unread_b,
	created_at
) VALUES ($1, $2, $3, 0, 0, $4)
ON CONFLICT (id) DO NOTHING
RETURNING id, user_a_id, user_b_id, unread_a, unread_b, created_at
`, matchID, userA, userB, now.UTC()).Scan(
		&match.ID,
		&match.UserAID,
		&match.UserBID,
		&match.UnreadA,
		&match.UnreadB,
		&match.CreatedAt,
	)
	if err == nil {
		return match, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Match{}, false, fmt.Errorf("create match: %w", err)
	}

	// Lost the race: the row already exists with equivalent data.
	existing, err := r.Get(ctx, matchID)
	if err != nil {
		return model.Match{}, false, err
	}
	return existing, false, nil
}

func (r *MatchRepo) Get(ctx context.Context, matchID string) (model.Match, error) {
	if matchID == "" {
		return model.Match{}, fmt.Errorf("invalid match id")
	}
	if r.pool == nil {
		return model.Match{}, fmt.Errorf("postgres pool is nil")
	}

	var match model.Match
	err := r.pool.QueryRow(ctx, `
SELECT id, user_a_id, user_b_id, unread_a, unread_b, created_at
FROM matches
WHERE id = $1
`, matchID).Scan(
		&match.ID,
		&match.UserAID,
		&match.UserBID,
		&match.UnreadA,
		&match.UnreadB,
		&match.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Match{}, ErrMatchNotFound
		}
		return model.Match{}, fmt.Errorf("get match: %w", err)
	}

	return match, nil
}

// ListForUser returns the user's matches, newest first.
func (r *MatchRepo) ListForUser(ctx context.Context, userID string, limit int) ([]model.Match, error) {
	if userID == "" {
		return nil, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_a_id, user_b_id, unread_a, unread_b, created_at
FROM matches
WHERE user_a_id = $1 OR user_b_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]model.Match, 0, limit)
	for rows.Next() {
		var match model.Match
		if err := rows.Scan(
			&match.ID,
			&match.UserAID,
			&match.UserBID,
			&match.UnreadA,
			&match.UnreadB,
			&match.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, match)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate matches: %w", rows.Err())
	}

	return matches, nil
}

func (r *MatchRepo) Delete(ctx context.Context, tx pgx.Tx, matchID string) (bool, error) {
	if matchID == "" {
		return false, fmt.Errorf("invalid match id")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
DELETE FROM matches
WHERE id = $1
`, matchID)
	if err != nil {
		return false, fmt.Errorf("delete match: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// IncrementUnread bumps the unread counter of the given participant. Runs in
// the same transaction as the message insert so counters never drift from the
// message log.
func (r *MatchRepo) IncrementUnread(ctx context.Context, tx pgx.Tx, matchID, userID string) error {
	if matchID == "" || userID == "" {
		return fmt.Errorf("invalid unread payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
UPDATE matches SET
	unread_a = CASE WHEN user_a_id = $2 THEN unread_a + 1 ELSE unread_a END,
	unread_b = CASE WHEN user_b_id = $2 THEN unread_b + 1 ELSE unread_b END
WHERE id = $1
`, matchID, userID); err != nil {
		return fmt.Errorf("increment unread: %w", err)
	}

	return nil
}

// DecrementUnread lowers the participant's unread counter, never below zero.
func (r *MatchRepo) DecrementUnread(ctx context.Context, tx pgx.Tx, matchID, userID string) error {
	if matchID == "" || userID == "" {
		return fmt.Errorf("invalid unread payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
UPDATE matches SET
	unread_a = CASE WHEN user_a_id = $2 THEN GREATEST(unread_a - 1, 0) ELSE unread_a END,
	unread_b = CASE WHEN user_b_id = $2 THEN GREATEST(unread_b - 1, 0) ELSE unread_b END
WHERE id = $1
`, matchID, userID); err != nil {
		return fmt.Errorf("decrement unread: %w", err)
	}

	return nil
}
