package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/avoronkov/flare/internal/domain/enums"
	"github.com/avoronkov/flare/internal/domain/model"
	"github.com/avoronkov/flare/internal/realtime"
	authsvc "github.com/avoronkov/flare/internal/services/auth"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("sender does not match authenticated identity")
	ErrForbidden    = errors.New("user is not a participant of the match")
)

type MatchStore interface {
	Get(ctx context.Context, matchID string) (model.Match, error)
	IncrementUnread(ctx context.Context, tx pgx.Tx, matchID, userID string) error
	DecrementUnread(ctx context.Context, tx pgx.Tx, matchID, userID string) error
}

type MessageStore interface {
	Insert(ctx context.Context, tx pgx.Tx, msg model.Message) (bool, error)
	Get(ctx context.Context, matchID, messageID string) (model.Message, error)
	ListByMatch(ctx context.Context, matchID string, limit int) ([]model.Message, error)
	MarkRead(ctx context.Context, tx pgx.Tx, matchID, messageID string) (bool, error)
	UpdateBody(ctx context.Context, matchID, messageID, body string) error
	Delete(ctx context.Context, matchID, messageID string) error
}

type Publisher interface {
	Publish(topic string)
}

// TxRunner executes fn inside a single storage transaction.
type TxRunner func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error

type Config struct {
	MaxTextLength int
}

type Dependencies struct {
	Matches  MatchStore
	Messages MessageStore
	Events   Publisher
	RunInTx  TxRunner
}

type Service struct {
	matches  MatchStore
	messages MessageStore
	events   Publisher
	runInTx  TxRunner
	cfg      Config
	now      func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = 2000
	}

	return &Service{
		matches:  deps.Matches,
		messages: deps.Messages,
		events:   deps.Events,
		runInTx:  deps.RunInTx,
		cfg:      cfg,
		now:      time.Now,
	}
}

type SendInput struct {
	MatchID  string
	SenderID string
	// ClientMessageID lets a retrying client reuse its first id, turning the
	// resend into a no-op instead of a duplicate message.
	ClientMessageID string
	Kind            enums.MessageKind
	Body            string
	ImageURL        string
}

// Send appends a message to the match conversation and bumps the receiver's
// unread counter in the same transaction, so the counter can never drift
// from the message log.
func (s *Service) Send(ctx context.Context, input SendInput) (model.Message, error) {
	if s.matches == nil || s.messages == nil || s.runInTx == nil {
		return model.Message{}, fmt.Errorf("chat dependencies are not configured")
	}
	if authsvc.CurrentUserID(ctx) != input.SenderID || input.SenderID == "" {
		return model.Message{}, ErrUnauthorized
	}

	body := strings.TrimSpace(input.Body)
	switch input.Kind {
	case enums.MessageKindText:
		if body == "" || len(body) > s.cfg.MaxTextLength {
			return model.Message{}, ErrValidation
		}
	case enums.MessageKindImage:
		if input.ImageURL == "" {
			return model.Message{}, ErrValidation
		}
	default:
		return model.Message{}, ErrValidation
	}

	match, err := s.matches.Get(ctx, input.MatchID)
	if err != nil {
		return model.Message{}, err
	}
	if !match.HasParticipant(input.SenderID) {
		return model.Message{}, ErrForbidden
	}

	msg := model.Message{
		ID:         input.ClientMessageID,
		MatchID:    match.ID,
		SenderID:   input.SenderID,
		ReceiverID: match.Other(input.SenderID),
		Body:       body,
		ImageURL:   input.ImageURL,
		Kind:       input.Kind,
		CreatedAt:  s.now().UTC(),
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	var created bool
	err = s.runInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		created, err = s.messages.Insert(ctx, tx, msg)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}
		return s.matches.IncrementUnread(ctx, tx, match.ID, msg.ReceiverID)
	})
	if err != nil {
		return model.Message{}, err
	}

	if !created {
		// Replayed client id: hand back the original message.
		return s.messages.Get(ctx, match.ID, msg.ID)
	}

	if s.events != nil {
		s.events.Publish(realtime.MessagesTopic(match.ID))
		s.events.Publish(realtime.MatchesTopic(match.UserAID))
		s.events.Publish(realtime.MatchesTopic(match.UserBID))
	}

	return msg, nil
}

// ListMessages returns the conversation in send order. Only participants may
// read it.
func (s *Service) ListMessages(ctx context.Context, matchID string, limit int) ([]model.Message, error) {
	if s.matches == nil || s.messages == nil {
		return nil, fmt.Errorf("chat dependencies are not configured")
	}

	match, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.HasParticipant(authsvc.CurrentUserID(ctx)) {
		return nil, ErrForbidden
	}

	return s.messages.ListByMatch(ctx, match.ID, limit)
}

// MarkRead flips the message's read flag and decrements the reader's unread
// counter, both in one transaction. Repeating the call is harmless: once the
// flag is set, nothing is decremented again.
func (s *Service) MarkRead(ctx context.Context, matchID, messageID string) error {
	if s.matches == nil || s.messages == nil || s.runInTx == nil {
		return fmt.Errorf("chat dependencies are not configured")
	}

	readerID := authsvc.CurrentUserID(ctx)
	match, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return err
	}
	if !match.HasParticipant(readerID) {
		return ErrForbidden
	}

	msg, err := s.messages.Get(ctx, match.ID, messageID)
	if err != nil {
		return err
	}
	if msg.ReceiverID != readerID {
		return ErrForbidden
	}

	var flipped bool
	err = s.runInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		flipped, err = s.messages.MarkRead(ctx, tx, match.ID, messageID)
		if err != nil {
			return err
		}
		if !flipped {
			return nil
		}
		return s.matches.DecrementUnread(ctx, tx, match.ID, readerID)
	})
	if err != nil {
		return err
	}

	if flipped && s.events != nil {
		s.events.Publish(realtime.MessagesTopic(match.ID))
		s.events.Publish(realtime.MatchesTopic(match.UserAID))
		s.events.Publish(realtime.MatchesTopic(match.UserBID))
	}

	return nil
}

// Edit replaces the body of the caller's own text message.
func (s *Service) Edit(ctx context.Context, matchID, messageID, body string) (model.Message, error) {
	if s.matches == nil || s.messages == nil {
		return model.Message{}, fmt.Errorf("chat dependencies are not configured")
	}

	body = strings.TrimSpace(body)
	if body == "" || len(body) > s.cfg.MaxTextLength {
		return model.Message{}, ErrValidation
	}

	msg, err := s.ownMessage(ctx, matchID, messageID)
	if err != nil {
		return model.Message{}, err
	}
	if msg.Kind != enums.MessageKindText {
		return model.Message{}, ErrValidation
	}

	if err := s.messages.UpdateBody(ctx, matchID, messageID, body); err != nil {
		return model.Message{}, err
	}
	msg.Body = body

	if s.events != nil {
		s.events.Publish(realtime.MessagesTopic(matchID))
	}

	return msg, nil
}

// Delete removes the caller's own message from the conversation.
func (s *Service) Delete(ctx context.Context, matchID, messageID string) error {
	if s.matches == nil || s.messages == nil {
		return fmt.Errorf("chat dependencies are not configured")
	}

	if _, err := s.ownMessage(ctx, matchID, messageID); err != nil {
		return err
	}

	if err := s.messages.Delete(ctx, matchID, messageID); err != nil {
		return err
	}

	if s.events != nil {
		s.events.Publish(realtime.MessagesTopic(matchID))
	}

	return nil
}

func (s *Service) ownMessage(ctx context.Context, matchID, messageID string) (model.Message, error) {
	match, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return model.Message{}, err
	}

	callerID := authsvc.CurrentUserID(ctx)
	if !match.HasParticipant(callerID) {
		return model.Message{}, ErrForbidden
	}

	msg, err := s.messages.Get(ctx, match.ID, messageID)
	if err != nil {
		return model.Message{}, err
	}
	if msg.SenderID != callerID {
		return model.Message{}, ErrForbidden
	}

	return msg, nil
}
