package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/avoronkov/flare/internal/services/auth"
	mediasvc "github.com/avoronkov/flare/internal/services/media"
	"github.com/avoronkov/flare/internal/transport/http/dto"
	httperrors "github.com/avoronkov/flare/internal/transport/http/errors"
)

const maxUploadBytes = 10 << 20

type MediaHandler struct {
	service *mediasvc.Service
}

func NewMediaHandler(service *mediasvc.Service) *MediaHandler {
	return &MediaHandler{service: service}
}

func (h *MediaHandler) UploadProfilePhoto(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	file, header, ok := uploadedFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	user, err := h.service.UploadProfilePhoto(
		r.Context(),
		identity.UserID,
		header.Filename,
		header.Header.Get("Content-Type"),
		file,
		header.Size,
	)
	if err != nil {
		switch {
		case errors.Is(err, mediasvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid photo upload")
		case errors.Is(err, mediasvc.ErrPhotoLimitReached):
			httperrors.Write(w, http.StatusConflict, httperrors.APIError{
				Code:    "PHOTO_LIMIT_REACHED",
				Message: "profile photo limit reached",
			})
		default:
			writeStoreError(w, err, "failed to upload photo")
		}
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.MapUser(user))
}

func (h *MediaHandler) RemoveProfilePhoto(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	objectKey := r.URL.Query().Get("key")
	if objectKey == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "key query parameter is required")
		return
	}

	user, err := h.service.RemoveProfilePhoto(r.Context(), identity.UserID, objectKey)
	if err != nil {
		if errors.Is(err, mediasvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "unknown photo key")
			return
		}
		writeStoreError(w, err, "failed to remove photo")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MapUser(user))
}

func (h *MediaHandler) UploadChatImage(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "match id is required")
		return
	}

	file, header, ok := uploadedFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	key, err := h.service.UploadChatImage(
		r.Context(),
		identity.UserID,
		matchID,
		header.Filename,
		header.Header.Get("Content-Type"),
		file,
		header.Size,
	)
	if err != nil {
		if errors.Is(err, mediasvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid image upload")
			return
		}
		writeStoreError(w, err, "failed to upload image")
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.ChatImageResponse{ObjectKey: key})
}

func (h *MediaHandler) SignedURL(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "media service is unavailable")
		return
	}

	objectKey := r.URL.Query().Get("key")
	if objectKey == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "key query parameter is required")
		return
	}

	url, err := h.service.SignedURL(r.Context(), objectKey)
	if err != nil {
		writeStoreError(w, err, "failed to sign url")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SignedURLResponse{URL: url})
}

func uploadedFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "multipart form with a file field is required")
		return nil, nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "file field is required")
		return nil, nil, false
	}

	return file, header, true
}
