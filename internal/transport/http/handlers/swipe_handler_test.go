package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avoronkov/flare/internal/domain/enums"
	"github.com/avoronkov/flare/internal/domain/model"
	pgrepo "github.com/avoronkov/flare/internal/repo/postgres"
	authsvc "github.com/avoronkov/flare/internal/services/auth"
	swipesvc "github.com/avoronkov/flare/internal/services/swipes"
)

type swipeStoreStub struct {
	swipes map[string]model.Swipe
}

func newSwipeStoreStub() *swipeStoreStub {
	return &swipeStoreStub{swipes: map[string]model.Swipe{}}
}

func (s *swipeStoreStub) Upsert(_ context.Context, actorID, targetID string, decision enums.Decision, now time.Time) (model.Swipe, error) {
	swipe := model.Swipe{ActorID: actorID, TargetID: targetID, Decision: decision, CreatedAt: now, UpdatedAt: now}
	s.swipes[actorID+"|"+targetID] = swipe
	return swipe, nil
}

func (s *swipeStoreStub) Get(_ context.Context, actorID, targetID string) (model.Swipe, error) {
	swipe, ok := s.swipes[actorID+"|"+targetID]
	if !ok {
		return model.Swipe{}, pgrepo.ErrSwipeNotFound
	}
	return swipe, nil
}

func (s *swipeStoreStub) ListByActor(_ context.Context, actorID string) ([]model.Swipe, error) {
	var out []model.Swipe
	for _, swipe := range s.swipes {
		if swipe.ActorID == actorID {
			out = append(out, swipe)
		}
	}
	return out, nil
}

type matchStoreStub struct {
	matches map[string]model.Match
}

func newMatchStoreStub() *matchStoreStub {
	return &matchStoreStub{matches: map[string]model.Match{}}
}

func (s *matchStoreStub) Upsert(_ context.Context, userID, otherID string, now time.Time) (model.Match, bool, error) {
	id := model.PairKey(userID, otherID)
	if match, ok := s.matches[id]; ok {
		return match, false, nil
	}
	a, b := model.SortPair(userID, otherID)
	match := model.Match{ID: id, UserAID: a, UserBID: b, CreatedAt: now}
	s.matches[id] = match
	return match, true, nil
}

func newSwipeHandlerForTest(swipes *swipeStoreStub) *SwipeHandler {
	svc := swipesvc.NewService(swipesvc.Dependencies{
		SwipeStore: swipes,
		MatchStore: newMatchStoreStub(),
	})
	return NewSwipeHandler(svc)
}

func authedSwipeRequest(t *testing.T, userID string, payload map[string]any) *http.Request {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/swipes", bytes.NewReader(body))
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{UserID: userID}))
	return req
}

func TestSwipeRequiresAuth(t *testing.T) {
	h := newSwipeHandlerForTest(newSwipeStoreStub())

	req := httptest.NewRequest(http.MethodPost, "/swipes", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	h.Handle(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestSwipeRejectsMissingFields(t *testing.T) {
	h := newSwipeHandlerForTest(newSwipeStoreStub())

	rr := httptest.NewRecorder()
	h.Handle(rr, authedSwipeRequest(t, "alice", map[string]any{"decision": "LIKE"}))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}

	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected error code: got %q want %q", payload.Code, "VALIDATION_ERROR")
	}
}

func TestSwipeMutualLikeReturnsMatch(t *testing.T) {
	swipes := newSwipeStoreStub()
	h := newSwipeHandlerForTest(swipes)

	rr := httptest.NewRecorder()
	h.Handle(rr, authedSwipeRequest(t, "bob", map[string]any{"target_id": "alice", "decision": "LIKE"}))
	if rr.Code != http.StatusOK {
		t.Fatalf("first swipe: got %d want %d, body %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.Handle(rr, authedSwipeRequest(t, "alice", map[string]any{"target_id": "bob", "decision": "LIKE"}))
	if rr.Code != http.StatusOK {
		t.Fatalf("second swipe: got %d want %d, body %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var payload struct {
		OK           bool `json:"ok"`
		MatchCreated bool `json:"match_created"`
		Match        *struct {
			ID          string `json:"id"`
			OtherUserID string `json:"other_user_id"`
		} `json:"match"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !payload.OK || !payload.MatchCreated {
		t.Fatalf("expected match_created=true, got %+v", payload)
	}
	if payload.Match == nil || payload.Match.ID != "alice_bob" {
		t.Fatalf("expected match alice_bob, got %+v", payload.Match)
	}
	if payload.Match.OtherUserID != "bob" {
		t.Fatalf("expected other user bob, got %q", payload.Match.OtherUserID)
	}
}
