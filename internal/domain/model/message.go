package model

import (
	"time"

	"github.com/avoronkov/flare/internal/domain/enums"
)

type Message struct {
	ID         string            `json:"id"`
	MatchID    string            `json:"match_id"`
	SenderID   string            `json:"sender_id"`
	ReceiverID string            `json:"receiver_id"`
	Body       string            `json:"body,omitempty"`
	ImageURL   string            `json:"image_url,omitempty"`
	Kind       enums.MessageKind `json:"kind"`
	Read       bool              `json:"read"`
	CreatedAt  time.Time         `json:"created_at"`
}
