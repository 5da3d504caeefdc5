package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avoronkov/flare/internal/domain/model"
	pgrepo "github.com/avoronkov/flare/internal/repo/postgres"
)

type stubUserStore struct {
	users  map[string]model.User
	hashes map[string]string
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{
		users:  make(map[string]model.User),
		hashes: make(map[string]string),
	}
}

func (s *stubUserStore) Create(_ context.Context, user model.User, passwordHash string) error {
	s.users[user.Username] = user
	s.hashes[user.Username] = passwordHash
	return nil
}

func (s *stubUserStore) GetByUsername(_ context.Context, username string) (model.User, string, error) {
	user, ok := s.users[username]
	if !ok {
		return model.User{}, "", pgrepo.ErrUserNotFound
	}
	return user, s.hashes[username], nil
}

func (s *stubUserStore) Get(_ context.Context, userID string) (model.User, error) {
	for _, user := range s.users {
		if user.ID == userID {
			return user, nil
		}
	}
	return model.User{}, pgrepo.ErrUserNotFound
}

func newTestService(store *stubUserStore) *Service {
	svc := NewService(store, NewJWTManager("test-secret", 15*time.Minute))
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	store := newStubUserStore()
	svc := newTestService(store)
	ctx := context.Background()

	session, err := svc.Register(ctx, RegisterInput{
		Username:    "Alice",
		Password:    "correct horse",
		DisplayName: "Alice A.",
		Age:         25,
		Gender:      "female",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if session.User.Username != "alice" {
		t.Fatalf("expected lowercased username, got %q", session.User.Username)
	}
	if session.User.ID == "" || session.AccessToken == "" {
		t.Fatalf("expected id and token, got %+v", session)
	}
	if store.hashes["alice"] == "correct horse" {
		t.Fatal("password must not be stored in plaintext")
	}

	login, err := svc.Login(ctx, "ALICE", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != session.User.ID {
		t.Fatalf("login returned a different user: %q vs %q", login.User.ID, session.User.ID)
	}

	claims, err := svc.ValidateAccessToken(ctx, login.AccessToken)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.UserID != session.User.ID {
		t.Fatalf("token carries wrong user id: %q", claims.UserID)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(newStubUserStore())
	ctx := context.Background()

	cases := []struct {
		name  string
		input RegisterInput
	}{
		{"empty username", RegisterInput{Password: "long enough", Age: 25}},
		{"short password", RegisterInput{Username: "alice", Password: "short", Age: 25}},
		{"underage", RegisterInput{Username: "alice", Password: "long enough", Age: 17}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tc.input); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestRegisterRejectsTakenUsername(t *testing.T) {
	svc := newTestService(newStubUserStore())
	ctx := context.Background()

	input := RegisterInput{Username: "alice", Password: "correct horse", Age: 25}
	if _, err := svc.Register(ctx, input); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, input); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(newStubUserStore())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "correct horse", Age: 25}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, "alice", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestPasswordHashRoundtrip(t *testing.T) {
	hash, err := hashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	ok, err := verifyPassword("hunter2hunter2", hash)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected matching password to verify")
	}

	ok, err = verifyPassword("wrong", hash)
	if err != nil {
		t.Fatalf("verify wrong: %v", err)
	}
	if ok {
		t.Fatal("wrong password must not verify")
	}

	if _, err := verifyPassword("anything", "not-an-encoded-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}
