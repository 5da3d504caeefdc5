package matches

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/avoronkov/flare/internal/domain/model"
	"github.com/avoronkov/flare/internal/realtime"
	authsvc "github.com/avoronkov/flare/internal/services/auth"
)

var (
	ErrValidation = errors.New("validation error")
	ErrForbidden  = errors.New("user is not a participant of the match")
)

type MatchStore interface {
	Get(ctx context.Context, matchID string) (model.Match, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]model.Match, error)
	Delete(ctx context.Context, tx pgx.Tx, matchID string) (bool, error)
}

type MessageStore interface {
	DeleteByMatch(ctx context.Context, tx pgx.Tx, matchID string) error
}

// TxRunner executes fn inside a single storage transaction.
type TxRunner func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error

type Dependencies struct {
	Store    MatchStore
	Messages MessageStore
	Broker   *realtime.Broker
	RunInTx  TxRunner
}

type Service struct {
	store    MatchStore
	messages MessageStore
	broker   *realtime.Broker
	runInTx  TxRunner
}

func NewService(deps Dependencies) *Service {
	return &Service{
		store:    deps.Store,
		messages: deps.Messages,
		broker:   deps.Broker,
		runInTx:  deps.RunInTx,
	}
}

// View is a match as one participant sees it: the other user and the
// caller's own unread count.
type View struct {
	Match       model.Match
	OtherUserID string
	Unread      int
}

func (s *Service) List(ctx context.Context, userID string, limit int) ([]View, error) {
	if userID == "" {
		return nil, ErrValidation
	}
	if s.store == nil {
		return nil, fmt.Errorf("match dependencies are not configured")
	}

	matches, err := s.store.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(matches))
	for _, match := range matches {
		views = append(views, View{
			Match:       match,
			OtherUserID: match.Other(userID),
			Unread:      match.UnreadFor(userID),
		})
	}
	return views, nil
}

func (s *Service) Get(ctx context.Context, matchID string) (model.Match, error) {
	if s.store == nil {
		return model.Match{}, fmt.Errorf("match dependencies are not configured")
	}

	match, err := s.store.Get(ctx, matchID)
	if err != nil {
		return model.Match{}, err
	}
	if !match.HasParticipant(authsvc.CurrentUserID(ctx)) {
		return model.Match{}, ErrForbidden
	}
	return match, nil
}

// Unmatch removes the match and its whole conversation in one transaction.
// Either participant may do it; the other side learns through the realtime
// channel when their match list shrinks.
func (s *Service) Unmatch(ctx context.Context, matchID string) error {
	if s.store == nil || s.messages == nil || s.runInTx == nil {
		return fmt.Errorf("match dependencies are not configured")
	}

	match, err := s.store.Get(ctx, matchID)
	if err != nil {
		return err
	}
	if !match.HasParticipant(authsvc.CurrentUserID(ctx)) {
		return ErrForbidden
	}

	err = s.runInTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.messages.DeleteByMatch(ctx, tx, match.ID); err != nil {
			return err
		}
		// Delete reports false when a concurrent unmatch won; both callers
		// still succeed.
		_, err := s.store.Delete(ctx, tx, match.ID)
		return err
	})
	if err != nil {
		return err
	}

	if s.broker != nil {
		s.broker.Publish(realtime.MatchesTopic(match.UserAID))
		s.broker.Publish(realtime.MatchesTopic(match.UserBID))
		s.broker.Publish(realtime.MessagesTopic(match.ID))
	}

	return nil
}

// Watch opens a live query over the user's match list: one snapshot on
// subscribe, then one per change.
func (s *Service) Watch(ctx context.Context, userID string, limit int) (*realtime.Subscription[View], error) {
	if userID == "" {
		return nil, ErrValidation
	}
	if s.store == nil || s.broker == nil {
		return nil, fmt.Errorf("match dependencies are not configured")
	}

	sub := realtime.Subscribe(ctx, s.broker, realtime.MatchesTopic(userID), func(ctx context.Context) ([]View, error) {
		return s.List(ctx, userID, limit)
	})
	return sub, nil
}
