package apiapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avoronkov/flare/internal/domain/model"
	pgrepo "github.com/avoronkov/flare/internal/repo/postgres"
	authsvc "github.com/avoronkov/flare/internal/services/auth"
	profilessvc "github.com/avoronkov/flare/internal/services/profiles"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"  Bearer abc", "abc", true},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		token, ok := extractBearerToken(tc.header)
		if ok != tc.ok || token != tc.token {
			t.Fatalf("header %q: got (%q, %v), want (%q, %v)", tc.header, token, ok, tc.token, tc.ok)
		}
	}
}

type singleUserStore struct {
	user model.User
	hash string
}

func (s *singleUserStore) Create(context.Context, model.User, string) error { return nil }

func (s *singleUserStore) GetByUsername(_ context.Context, username string) (model.User, string, error) {
	if username != s.user.Username {
		return model.User{}, "", pgrepo.ErrUserNotFound
	}
	return s.user, s.hash, nil
}

func (s *singleUserStore) Get(_ context.Context, userID string) (model.User, error) {
	if userID != s.user.ID {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return s.user, nil
}

func TestAuthMiddleware(t *testing.T) {
	jwtMgr := authsvc.NewJWTManager("test-secret", 15*time.Minute)
	authService := authsvc.NewService(&singleUserStore{}, jwtMgr)

	var gotUserID string
	handler := AuthMiddleware(authService, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = authsvc.CurrentUserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", rec.Code)
	}

	token, err := jwtMgr.Issue("user-1", "alice")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for valid token, got %d", rec.Code)
	}
	if gotUserID != "user-1" {
		t.Fatalf("expected identity user-1 in context, got %q", gotUserID)
	}
}

type touchRecorder struct {
	touched []string
}

func (s *touchRecorder) Get(context.Context, string) (model.User, error) {
	return model.User{}, pgrepo.ErrUserNotFound
}

func (s *touchRecorder) Update(context.Context, string, pgrepo.ProfileUpdate) (model.User, error) {
	return model.User{}, pgrepo.ErrUserNotFound
}

func (s *touchRecorder) TouchLastActive(_ context.Context, userID string, _ time.Time) error {
	s.touched = append(s.touched, userID)
	return nil
}

func TestPresenceMiddlewareTouchesAuthenticatedUser(t *testing.T) {
	store := &touchRecorder{}
	profileService := profilessvc.NewService(profilessvc.Dependencies{Store: store})

	handler := PresenceMiddleware(profileService, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	// Without identity the middleware is a passthrough.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/feed", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(store.touched) != 0 {
		t.Fatalf("expected no touch without identity, got %v", store.touched)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/feed", nil)
	req = req.WithContext(authsvc.WithIdentity(req.Context(), authsvc.Identity{UserID: "user-1"}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(store.touched) != 1 || store.touched[0] != "user-1" {
		t.Fatalf("expected touch for user-1, got %v", store.touched)
	}
}
