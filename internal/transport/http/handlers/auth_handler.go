package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	pgrepo "github.com/avoronkov/flare/internal/repo/postgres"
	authsvc "github.com/avoronkov/flare/internal/services/auth"
	"github.com/avoronkov/flare/internal/transport/http/dto"
	httperrors "github.com/avoronkov/flare/internal/transport/http/errors"
)

type AuthHandler struct {
	service *authsvc.Service
}

func NewAuthHandler(service *authsvc.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	session, err := h.service.Register(r.Context(), authsvc.RegisterInput{
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Age:         req.Age,
		Gender:      req.Gender,
	})
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "username, password (8+ chars) and age 18+ are required")
		case errors.Is(err, authsvc.ErrUsernameTaken):
			httperrors.Write(w, http.StatusConflict, httperrors.APIError{
				Code:    "USERNAME_TAKEN",
				Message: "username is already registered",
			})
		default:
			writeStoreError(w, err, "failed to register")
		}
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.SessionResponse{
		AccessToken: session.AccessToken,
		Me:          dto.MapUser(session.User),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	session, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "username and password are required")
		case errors.Is(err, authsvc.ErrInvalidCredentials):
			writeUnauthorized(w, "INVALID_CREDENTIALS", "username or password is wrong")
		default:
			writeStoreError(w, err, "failed to login")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SessionResponse{
		AccessToken: session.AccessToken,
		Me:          dto.MapUser(session.User),
	})
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeForbidden(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusForbidden, httperrors.APIError{Code: code, Message: message})
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusNotFound, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

// writeStoreError distinguishes a transient backend outage, which the client
// may retry, from everything else.
func writeStoreError(w http.ResponseWriter, err error, fallback string) {
	if pgrepo.IsUnavailable(err) {
		httperrors.Write(w, http.StatusServiceUnavailable, httperrors.APIError{
			Code:    "STORE_UNAVAILABLE",
			Message: "storage is temporarily unavailable, retry later",
		})
		return
	}
	writeInternal(w, "INTERNAL_ERROR", fallback)
}
