package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avoronkov/flare/internal/domain/model"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

// Insert appends the message. The id is client- or server-generated; the
// conflict clause makes a retried send with the same id a no-op, so the
// returned flag is false when the message was already stored.
func (r *MessageRepo) Insert(ctx context.Context, tx pgx.Tx, msg model.Message) (bool, error) {
	if msg.ID == "" || msg.MatchID == "" || msg.SenderID == "" || msg.ReceiverID == "" {
		return false, fmt.Errorf("invalid message payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
INSERT INTO messages (
	id,
	match_id,
	sender_id,
	receiver_id,
	body,
	image_url,
	kind,
	read,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)
ON CONFLICT (id) DO NOTHING
`, msg.ID, msg.MatchID, msg.SenderID, msg.ReceiverID, msg.Body, msg.ImageURL, string(msg.Kind), msg.CreatedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("insert message: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *MessageRepo) Get(ctx context.Context, matchID, messageID string) (model.Message, error) {
	if matchID == "" || messageID == "" {
		return model.Message{}, fmt.Errorf("invalid message lookup payload")
	}
	if r.pool == nil {
		return model.Message{}, fmt.Errorf("postgres pool is nil")
	}

	var msg model.Message
	err := r.pool.QueryRow(ctx, `
SELECT id, match_id, sender_id, receiver_id, body, image_url, kind, read, created_at
FROM messages
WHERE id = $1 AND match_id = $2
`, messageID, matchID).Scan(
		&msg.ID,
		&msg.MatchID,
		&msg.SenderID,
		&msg.ReceiverID,
		&msg.Body,
		&msg.ImageURL,
		&msg.Kind,
		&msg.Read,
		&msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Message{}, ErrMessageNotFound
		}
		return model.Message{}, fmt.Errorf("get message: %w", err)
	}

	return msg, nil
}

// ListByMatch returns the match's messages in append order.
func (r *MessageRepo) ListByMatch(ctx context.Context, matchID string, limit int) ([]model.Message, error) {
	if matchID == "" {
		return nil, fmt.Errorf("invalid match id")
	}
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 200
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, match_id, sender_id, receiver_id, body, image_url, kind, read, created_at
FROM messages
WHERE match_id = $1
ORDER BY created_at ASC, id ASC
LIMIT $2
`, matchID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0, limit)
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.MatchID,
			&msg.SenderID,
			&msg.ReceiverID,
			&msg.Body,
			&msg.ImageURL,
			&msg.Kind,
			&msg.Read,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate messages: %w", rows.Err())
	}

	return messages, nil
}

// MarkRead flips the read flag. Returns true only when the flag actually
// changed, so the caller can keep the unread counter consistent; marking an
// already-read message is a no-op.
func (r *MessageRepo) MarkRead(ctx context.Context, tx pgx.Tx, matchID, messageID string) (bool, error) {
	if matchID == "" || messageID == "" {
		return false, fmt.Errorf("invalid mark read payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
UPDATE messages
SET read = TRUE
WHERE id = $1 AND match_id = $2 AND read = FALSE
`, messageID, matchID)
	if err != nil {
		return false, fmt.Errorf("mark message read: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// UpdateBody edits the text in place. Ordering is untouched: created_at is
// the sort key and is never rewritten.
func (r *MessageRepo) UpdateBody(ctx context.Context, matchID, messageID, body string) error {
	if matchID == "" || messageID == "" {
		return fmt.Errorf("invalid edit payload")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
UPDATE messages
SET body = $3
WHERE id = $1 AND match_id = $2
`, messageID, matchID, body)
	if err != nil {
		return fmt.Errorf("update message body: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrMessageNotFound
	}

	return nil
}

func (r *MessageRepo) Delete(ctx context.Context, matchID, messageID string) error {
	if matchID == "" || messageID == "" {
		return fmt.Errorf("invalid delete payload")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM messages
WHERE id = $1 AND match_id = $2
`, messageID, matchID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrMessageNotFound
	}

	return nil
}

// DeleteByMatch removes the whole log when a match is dissolved.
func (r *MessageRepo) DeleteByMatch(ctx context.Context, tx pgx.Tx, matchID string) error {
	if matchID == "" {
		return fmt.Errorf("invalid match id")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
DELETE FROM messages
WHERE match_id = $1
`, matchID); err != nil {
		return fmt.Errorf("delete messages by match: %w", err)
	}

	return nil
}
