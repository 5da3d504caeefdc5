package dto

import (
	"time"

	"github.com/avoronkov/flare/internal/domain/model"
)

type SendMessageRequest struct {
	ClientMessageID string `json:"client_message_id"`
	Kind            string `json:"kind"`
	Body            string `json:"body"`
	ImageURL        string `json:"image_url"`
}

type EditMessageRequest struct {
	Body string `json:"body"`
}

type MessageResponse struct {
	ID         string    `json:"id"`
	MatchID    string    `json:"match_id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Kind       string    `json:"kind"`
	Body       string    `json:"body"`
	ImageURL   string    `json:"image_url,omitempty"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

type MessagesResponse struct {
	Items []MessageResponse `json:"items"`
}

func MapMessage(msg model.Message) MessageResponse {
	return MessageResponse{
		ID:         msg.ID,
		MatchID:    msg.MatchID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Kind:       string(msg.Kind),
		Body:       msg.Body,
		ImageURL:   msg.ImageURL,
		Read:       msg.Read,
		CreatedAt:  msg.CreatedAt,
	}
}

func MapMessages(msgs []model.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, MapMessage(msg))
	}
	return out
}
