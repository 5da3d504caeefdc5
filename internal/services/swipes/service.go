package swipes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/avoronkov/flare/internal/domain/enums"
	"github.com/avoronkov/flare/internal/domain/model"
	"github.com/avoronkov/flare/internal/pkg/validate"
	"github.com/avoronkov/flare/internal/realtime"
	pgrepo "github.com/avoronkov/flare/internal/repo/postgres"
	authsvc "github.com/avoronkov/flare/internal/services/auth"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("actor does not match authenticated identity")
)

type SwipeStore interface {
	Upsert(ctx context.Context, actorID, targetID string, decision enums.Decision, now time.Time) (model.Swipe, error)
	Get(ctx context.Context, actorID, targetID string) (model.Swipe, error)
	ListByActor(ctx context.Context, actorID string) ([]model.Swipe, error)
}

type MatchStore interface {
	Upsert(ctx context.Context, userID, otherID string, now time.Time) (model.Match, bool, error)
}

// SwipeCache is the device-local mirror of decided targets. Writes here are
// best effort; the remote store stays authoritative.
type SwipeCache interface {
	Remember(ctx context.Context, userID, targetID string, decision enums.Decision) error
	Rebuild(ctx context.Context, userID string, entries map[string]enums.Decision) error
}

type Publisher interface {
	Publish(topic string)
}

type Dependencies struct {
	SwipeStore SwipeStore
	MatchStore MatchStore
	Cache      SwipeCache
	Events     Publisher
	Logger     *zap.Logger
}

type Service struct {
	swipeStore SwipeStore
	matchStore MatchStore
	cache      SwipeCache
	events     Publisher
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		swipeStore: deps.SwipeStore,
		matchStore: deps.MatchStore,
		cache:      deps.Cache,
		events:     deps.Events,
		logger:     logger,
		now:        time.Now,
	}
}

type Result struct {
	Swipe model.Swipe
	// Match is set when this decision completed a mutual like. The other
	// participant learns about it over the realtime channel.
	Match        *model.Match
	MatchCreated bool
}

// Record durably stores the actor's decision about the target, then checks
// for a reciprocal like. The swipe write is keyed on the pair, so a retry
// after a timeout overwrites instead of duplicating; the whole operation is
// safe to repeat.
func (s *Service) Record(ctx context.Context, actorID, targetID string, decision enums.Decision) (Result, error) {
	if !validate.DistinctPair(actorID, targetID) || !decision.Valid() {
		return Result{}, ErrValidation
	}
	if s.swipeStore == nil || s.matchStore == nil {
		return Result{}, fmt.Errorf("swipe dependencies are not configured")
	}
	if authsvc.CurrentUserID(ctx) != actorID {
		return Result{}, ErrUnauthorized
	}

	now := s.now().UTC()
	swipe, err := s.swipeStore.Upsert(ctx, actorID, targetID, decision, now)
	if err != nil {
		return Result{}, err
	}

	// Mirror into the local cache. Failure here only degrades feed
	// exclusion until the next rebuild, so it is logged and swallowed.
	if s.cache != nil {
		if err := s.cache.Remember(ctx, actorID, targetID, decision); err != nil {
			s.logger.Warn("swipe cache mirror failed",
				zap.String("actor_id", actorID),
				zap.String("target_id", targetID),
				zap.Error(err),
			)
		}
	}

	result := Result{Swipe: swipe}
	if !decision.Positive() {
		return result, nil
	}

	match, created, err := s.detectMatch(ctx, actorID, targetID, now)
	if err != nil {
		// The swipe stays recorded: a missed match is re-derived by the
		// reconcile sweep or by the next swipe from either side.
		return result, err
	}

	result.Match = match
	result.MatchCreated = created
	return result, nil
}

// detectMatch reads the reciprocal swipe from the remote store (never the
// cache) and creates the match under its canonical id when both decisions
// are positive. Either side may run this concurrently; the deterministic key
// guarantees a single match row.
func (s *Service) detectMatch(ctx context.Context, actorID, targetID string, now time.Time) (*model.Match, bool, error) {
	reciprocal, err := s.swipeStore.Get(ctx, targetID, actorID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrSwipeNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !reciprocal.Decision.Positive() {
		return nil, false, nil
	}

	match, created, err := s.matchStore.Upsert(ctx, actorID, targetID, now)
	if err != nil {
		return nil, false, err
	}

	if created && s.events != nil {
		s.events.Publish(realtime.MatchesTopic(match.UserAID))
		s.events.Publish(realtime.MatchesTopic(match.UserBID))
	}

	return &match, created, nil
}

// RebuildCache reconstructs the user's local exclusion cache from the
// authoritative swipe log.
func (s *Service) RebuildCache(ctx context.Context, userID string) error {
	if !validate.UserID(userID) {
		return ErrValidation
	}
	if s.swipeStore == nil || s.cache == nil {
		return fmt.Errorf("swipe dependencies are not configured")
	}

	swipes, err := s.swipeStore.ListByActor(ctx, userID)
	if err != nil {
		return err
	}

	entries := make(map[string]enums.Decision, len(swipes))
	for _, swipe := range swipes {
		entries[swipe.TargetID] = swipe.Decision
	}

	return s.cache.Rebuild(ctx, userID, entries)
}
