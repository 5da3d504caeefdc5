package dto

import (
	"time"

	"github.com/avoronkov/flare/internal/domain/model"
	matchessvc "github.com/avoronkov/flare/internal/services/matches"
)

type MatchResponse struct {
	ID          string    `json:"id"`
	OtherUserID string    `json:"other_user_id"`
	Unread      int       `json:"unread"`
	CreatedAt   time.Time `json:"created_at"`
}

type MatchesResponse struct {
	Items []MatchResponse `json:"items"`
}

func MapMatch(match model.Match, viewerID string) MatchResponse {
	return MatchResponse{
		ID:          match.ID,
		OtherUserID: match.Other(viewerID),
		Unread:      match.UnreadFor(viewerID),
		CreatedAt:   match.CreatedAt,
	}
}

func MapMatchViews(views []matchessvc.View) []MatchResponse {
	out := make([]MatchResponse, 0, len(views))
	for _, view := range views {
		out = append(out, MatchResponse{
			ID:          view.Match.ID,
			OtherUserID: view.OtherUserID,
			Unread:      view.Unread,
			CreatedAt:   view.Match.CreatedAt,
		})
	}
	return out
}
