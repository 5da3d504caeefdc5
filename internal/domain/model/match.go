package model

import (
	"strings"
	"time"
)

// Match links two users who liked each other. Its id is derived from the
// sorted participant ids, so concurrent creation attempts converge on the
// same row.
type Match struct {
	ID        string    `json:"id"`
	UserAID   string    `json:"user_a_id"`
	UserBID   string    `json:"user_b_id"`
	UnreadA   int       `json:"unread_a"`
	UnreadB   int       `json:"unread_b"`
	CreatedAt time.Time `json:"created_at"`
}

// PairKey returns the canonical match id for two users regardless of order.
func PairKey(userID, otherID string) string {
	if strings.Compare(userID, otherID) > 0 {
		userID, otherID = otherID, userID
	}
	return userID + "_" + otherID
}

// SortPair returns the two ids in canonical (ascending) order.
func SortPair(userID, otherID string) (string, string) {
	if strings.Compare(userID, otherID) > 0 {
		return otherID, userID
	}
	return userID, otherID
}

// Other returns the participant that is not userID.
func (m Match) Other(userID string) string {
	if m.UserAID == userID {
		return m.UserBID
	}
	return m.UserAID
}

// UnreadFor returns the unread counter belonging to userID.
func (m Match) UnreadFor(userID string) int {
	if m.UserAID == userID {
		return m.UnreadA
	}
	return m.UnreadB
}

// HasParticipant reports whether userID is one of the two matched users.
func (m Match) HasParticipant(userID string) bool {
	return m.UserAID == userID || m.UserBID == userID
}
