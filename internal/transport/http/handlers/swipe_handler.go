package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/avoronkov/flare/internal/domain/enums"
	authsvc "github.com/avoronkov/flare/internal/services/auth"
	swipesvc "github.com/avoronkov/flare/internal/services/swipes"
	"github.com/avoronkov/flare/internal/transport/http/dto"
	httperrors "github.com/avoronkov/flare/internal/transport/http/errors"
)

type SwipeHandler struct {
	service *swipesvc.Service
}

func NewSwipeHandler(service *swipesvc.Service) *SwipeHandler {
	return &SwipeHandler{service: service}
}

func (h *SwipeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	var req dto.SwipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if strings.TrimSpace(req.TargetID) == "" || strings.TrimSpace(req.Decision) == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "target_id and decision are required")
		return
	}

	result, err := h.service.Record(r.Context(), identity.UserID, req.TargetID, enums.Decision(req.Decision))
	if err != nil {
		switch {
		case errors.Is(err, swipesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid swipe request")
		case errors.Is(err, swipesvc.ErrUnauthorized):
			writeForbidden(w, "FORBIDDEN", "cannot swipe on behalf of another user")
		default:
			writeStoreError(w, err, "failed to record swipe")
		}
		return
	}

	resp := dto.SwipeResponse{
		OK:           true,
		MatchCreated: result.MatchCreated,
	}
	if result.Match != nil {
		match := dto.MapMatch(*result.Match, identity.UserID)
		resp.Match = &match
	}

	httperrors.Write(w, http.StatusOK, resp)
}

// RebuildCache restores the caller's local exclusion cache from the
// authoritative swipe log.
func (h *SwipeHandler) RebuildCache(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "SWIPE_SERVICE_UNAVAILABLE", "swipe service is unavailable")
		return
	}

	if err := h.service.RebuildCache(r.Context(), identity.UserID); err != nil {
		writeStoreError(w, err, "failed to rebuild swipe cache")
		return
	}

	httperrors.Write(w, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{OK: true})
}
