package handlers

import (
	"errors"
	"net/http"
	"strconv"

	authsvc "github.com/avoronkov/flare/internal/services/auth"
	feedsvc "github.com/avoronkov/flare/internal/services/feed"
	"github.com/avoronkov/flare/internal/transport/http/dto"
	httperrors "github.com/avoronkov/flare/internal/transport/http/errors"
)

type FeedHandler struct {
	service *feedsvc.Service
}

func NewFeedHandler(service *feedsvc.Service) *FeedHandler {
	return &FeedHandler{service: service}
}

func (h *FeedHandler) Handle(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "FEED_SERVICE_UNAVAILABLE", "feed service is unavailable")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "VALIDATION_ERROR", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	batch, err := h.service.NextBatch(r.Context(), identity.UserID, limit)
	if err != nil {
		if errors.Is(err, feedsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid feed request")
			return
		}
		writeStoreError(w, err, "failed to build feed")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.FeedResponse{Items: dto.MapUsers(batch)})
}
