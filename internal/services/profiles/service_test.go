package profiles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avoronkov/flare/internal/domain/model"
	"github.com/avoronkov/flare/internal/realtime"
	pgrepo "github.com/avoronkov/flare/internal/repo/postgres"
	authsvc "github.com/avoronkov/flare/internal/services/auth"
)

type stubProfileStore struct {
	users map[string]model.User
}

func newStubProfileStore(users ...model.User) *stubProfileStore {
	s := &stubProfileStore{users: map[string]model.User{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *stubProfileStore) Get(_ context.Context, userID string) (model.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return user, nil
}

func (s *stubProfileStore) Update(_ context.Context, userID string, upd pgrepo.ProfileUpdate) (model.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	if upd.DisplayName != nil {
		user.DisplayName = *upd.DisplayName
	}
	if upd.Bio != nil {
		user.Bio = *upd.Bio
	}
	if upd.AgeMin != nil {
		user.AgeMin = *upd.AgeMin
	}
	if upd.AgeMax != nil {
		user.AgeMax = *upd.AgeMax
	}
	s.users[userID] = user
	return user, nil
}

func (s *stubProfileStore) TouchLastActive(_ context.Context, userID string, at time.Time) error {
	user, ok := s.users[userID]
	if !ok {
		return pgrepo.ErrUserNotFound
	}
	user.LastActiveAt = at
	user.Online = true
	s.users[userID] = user
	return nil
}

func asUser(userID string) context.Context {
	return authsvc.WithIdentity(context.Background(), authsvc.Identity{UserID: userID})
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestUpdateOwnProfileOnly(t *testing.T) {
	store := newStubProfileStore(model.User{ID: "alice", DisplayName: "Alice"})
	svc := NewService(Dependencies{Store: store, Broker: realtime.NewBroker()})

	if _, err := svc.Update(asUser("bob"), "alice", pgrepo.ProfileUpdate{DisplayName: strPtr("Hacked")}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	user, err := svc.Update(asUser("alice"), "alice", pgrepo.ProfileUpdate{DisplayName: strPtr("Alice B")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if user.DisplayName != "Alice B" {
		t.Fatalf("expected updated display name, got %q", user.DisplayName)
	}
}

func TestUpdateRejectsBadAgeRange(t *testing.T) {
	store := newStubProfileStore(model.User{ID: "alice"})
	svc := NewService(Dependencies{Store: store, Broker: realtime.NewBroker()})

	if _, err := svc.Update(asUser("alice"), "alice", pgrepo.ProfileUpdate{AgeMin: intPtr(16)}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for underage min, got %v", err)
	}
	if _, err := svc.Update(asUser("alice"), "alice", pgrepo.ProfileUpdate{AgeMin: intPtr(40), AgeMax: intPtr(30)}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for inverted range, got %v", err)
	}
}

func TestWatchEmitsOnProfileChange(t *testing.T) {
	store := newStubProfileStore(model.User{ID: "alice", DisplayName: "Alice"})
	broker := realtime.NewBroker()
	svc := NewService(Dependencies{Store: store, Broker: broker})

	sub, err := svc.Watch(context.Background(), "alice")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer sub.Close()

	initial := <-sub.Snapshots()
	if len(initial) != 1 || initial[0].DisplayName != "Alice" {
		t.Fatalf("unexpected initial snapshot: %v", initial)
	}

	if _, err := svc.Update(asUser("alice"), "alice", pgrepo.ProfileUpdate{DisplayName: strPtr("Alice B")}); err != nil {
		t.Fatalf("update: %v", err)
	}

	next := <-sub.Snapshots()
	if len(next) != 1 || next[0].DisplayName != "Alice B" {
		t.Fatalf("expected snapshot with new name, got %v", next)
	}
}

func TestWatchMissingProfileEmitsEmpty(t *testing.T) {
	svc := NewService(Dependencies{Store: newStubProfileStore(), Broker: realtime.NewBroker()})

	sub, err := svc.Watch(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer sub.Close()

	initial, ok := <-sub.Snapshots()
	if !ok {
		t.Fatalf("stream closed unexpectedly: %v", sub.Err())
	}
	if len(initial) != 0 {
		t.Fatalf("expected empty snapshot, got %v", initial)
	}
}
