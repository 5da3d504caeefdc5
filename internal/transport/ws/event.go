package ws

import "encoding/json"

const (
	// client -> server
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
	EventPing        = "ping"

	// server -> client
	EventSnapshot = "snapshot"
	EventError    = "error"
	EventPong     = "pong"
)

const (
	StreamMatches  = "matches"
	StreamMessages = "messages"
	StreamProfile  = "profile"
)

// ClientEvent is a control frame from the client. MatchID is required for
// the messages stream, UserID for the profile stream.
type ClientEvent struct {
	Type    string `json:"type"`
	Stream  string `json:"stream,omitempty"`
	MatchID string `json:"match_id,omitempty"`
	UserID  string `json:"user_id,omitempty"`
}

// ServerEvent carries one full result-set snapshot for a stream, or an
// error, or a pong.
type ServerEvent struct {
	Type    string          `json:"type"`
	Stream  string          `json:"stream,omitempty"`
	MatchID string          `json:"match_id,omitempty"`
	UserID  string          `json:"user_id,omitempty"`
	Items   json.RawMessage `json:"items,omitempty"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
}
