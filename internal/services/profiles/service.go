package profiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avoronkov/flare/internal/domain/model"
	"github.com/avoronkov/flare/internal/realtime"
	pgrepo "github.com/avoronkov/flare/internal/repo/postgres"
	authsvc "github.com/avoronkov/flare/internal/services/auth"
)

var (
	ErrValidation = errors.New("validation error")
	ErrForbidden  = errors.New("profile belongs to another user")
)

type ProfileStore interface {
	Get(ctx context.Context, userID string) (model.User, error)
	Update(ctx context.Context, userID string, upd pgrepo.ProfileUpdate) (model.User, error)
	TouchLastActive(ctx context.Context, userID string, at time.Time) error
}

type Dependencies struct {
	Store  ProfileStore
	Broker *realtime.Broker
}

type Service struct {
	store  ProfileStore
	broker *realtime.Broker
	now    func() time.Time
}

func NewService(deps Dependencies) *Service {
	return &Service{
		store:  deps.Store,
		broker: deps.Broker,
		now:    time.Now,
	}
}

func (s *Service) Get(ctx context.Context, userID string) (model.User, error) {
	if userID == "" {
		return model.User{}, ErrValidation
	}
	if s.store == nil {
		return model.User{}, fmt.Errorf("profile dependencies are not configured")
	}
	return s.store.Get(ctx, userID)
}

// Update applies the caller's partial edit to their own profile and notifies
// profile watchers.
func (s *Service) Update(ctx context.Context, userID string, upd pgrepo.ProfileUpdate) (model.User, error) {
	if userID == "" {
		return model.User{}, ErrValidation
	}
	if s.store == nil {
		return model.User{}, fmt.Errorf("profile dependencies are not configured")
	}
	if authsvc.CurrentUserID(ctx) != userID {
		return model.User{}, ErrForbidden
	}
	if upd.AgeMin != nil && *upd.AgeMin < 18 {
		return model.User{}, ErrValidation
	}
	if upd.AgeMin != nil && upd.AgeMax != nil && *upd.AgeMin > *upd.AgeMax {
		return model.User{}, ErrValidation
	}

	user, err := s.store.Update(ctx, userID, upd)
	if err != nil {
		return model.User{}, err
	}

	if s.broker != nil {
		s.broker.Publish(realtime.ProfileTopic(userID))
	}

	return user, nil
}

// TouchLastActive records presence. Called on authenticated requests, so it
// never fails the request itself.
func (s *Service) TouchLastActive(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrValidation
	}
	if s.store == nil {
		return fmt.Errorf("profile dependencies are not configured")
	}
	return s.store.TouchLastActive(ctx, userID, s.now().UTC())
}

// Watch opens a live query over a single profile: one snapshot on subscribe,
// then one per profile change. The snapshot carries zero or one user.
func (s *Service) Watch(ctx context.Context, userID string) (*realtime.Subscription[model.User], error) {
	if userID == "" {
		return nil, ErrValidation
	}
	if s.store == nil || s.broker == nil {
		return nil, fmt.Errorf("profile dependencies are not configured")
	}

	sub := realtime.Subscribe(ctx, s.broker, realtime.ProfileTopic(userID), func(ctx context.Context) ([]model.User, error) {
		user, err := s.store.Get(ctx, userID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrUserNotFound) {
				return []model.User{}, nil
			}
			return nil, err
		}
		return []model.User{user}, nil
	})
	return sub, nil
}
