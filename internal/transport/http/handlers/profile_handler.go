package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	pgrepo "github.com/avoronkov/flare/internal/repo/postgres"
	authsvc "github.com/avoronkov/flare/internal/services/auth"
	profilessvc "github.com/avoronkov/flare/internal/services/profiles"
	"github.com/avoronkov/flare/internal/transport/http/dto"
	httperrors "github.com/avoronkov/flare/internal/transport/http/errors"
)

type ProfileHandler struct {
	service *profilessvc.Service
}

func NewProfileHandler(service *profilessvc.Service) *ProfileHandler {
	return &ProfileHandler{service: service}
}

func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	user, err := h.service.Get(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			writeNotFound(w, "USER_NOT_FOUND", "profile does not exist")
			return
		}
		writeStoreError(w, err, "failed to load profile")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MapUser(user))
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "user id is required")
		return
	}

	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			writeNotFound(w, "USER_NOT_FOUND", "profile does not exist")
			return
		}
		writeStoreError(w, err, "failed to load profile")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MapUser(user))
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	var req dto.ProfileUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	user, err := h.service.Update(r.Context(), identity.UserID, pgrepo.ProfileUpdate{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		PhotoURLs:   req.PhotoURLs,
		Interests:   req.Interests,
		AgeMin:      req.AgeMin,
		AgeMax:      req.AgeMax,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	})
	if err != nil {
		switch {
		case errors.Is(err, profilessvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid profile update")
		case errors.Is(err, profilessvc.ErrForbidden):
			writeForbidden(w, "FORBIDDEN", "cannot edit another user's profile")
		case errors.Is(err, pgrepo.ErrUserNotFound):
			writeNotFound(w, "USER_NOT_FOUND", "profile does not exist")
		default:
			writeStoreError(w, err, "failed to update profile")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MapUser(user))
}
