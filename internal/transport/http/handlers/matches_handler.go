package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	pgrepo "github.com/avoronkov/flare/internal/repo/postgres"
	authsvc "github.com/avoronkov/flare/internal/services/auth"
	matchessvc "github.com/avoronkov/flare/internal/services/matches"
	"github.com/avoronkov/flare/internal/transport/http/dto"
	httperrors "github.com/avoronkov/flare/internal/transport/http/errors"
)

type MatchesHandler struct {
	service *matchessvc.Service
}

func NewMatchesHandler(service *matchessvc.Service) *MatchesHandler {
	return &MatchesHandler{service: service}
}

func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	views, err := h.service.List(r.Context(), identity.UserID, 0)
	if err != nil {
		writeStoreError(w, err, "failed to list matches")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MatchesResponse{Items: dto.MapMatchViews(views)})
}

func (h *MatchesHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCH_SERVICE_UNAVAILABLE", "match service is unavailable")
		return
	}

	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "match id is required")
		return
	}

	if err := h.service.Unmatch(r.Context(), matchID); err != nil {
		switch {
		case errors.Is(err, pgrepo.ErrMatchNotFound):
			writeNotFound(w, "MATCH_NOT_FOUND", "match does not exist")
		case errors.Is(err, matchessvc.ErrForbidden):
			writeForbidden(w, "FORBIDDEN", "only participants may unmatch")
		default:
			writeStoreError(w, err, "failed to unmatch")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{OK: true})
}
