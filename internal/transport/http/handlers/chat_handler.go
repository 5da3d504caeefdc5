package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/avoronkov/flare/internal/domain/enums"
	pgrepo "github.com/avoronkov/flare/internal/repo/postgres"
	authsvc "github.com/avoronkov/flare/internal/services/auth"
	chatsvc "github.com/avoronkov/flare/internal/services/chat"
	"github.com/avoronkov/flare/internal/transport/http/dto"
	httperrors "github.com/avoronkov/flare/internal/transport/http/errors"
)

type ChatHandler struct {
	service *chatsvc.Service
}

func NewChatHandler(service *chatsvc.Service) *ChatHandler {
	return &ChatHandler{service: service}
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "match id is required")
		return
	}

	var req dto.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	kind := enums.MessageKind(req.Kind)
	if req.Kind == "" {
		kind = enums.MessageKindText
	}

	msg, err := h.service.Send(r.Context(), chatsvc.SendInput{
		MatchID:         matchID,
		SenderID:        identity.UserID,
		ClientMessageID: req.ClientMessageID,
		Kind:            kind,
		Body:            req.Body,
		ImageURL:        req.ImageURL,
	})
	if err != nil {
		writeChatError(w, err, "failed to send message")
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.MapMessage(msg))
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "match id is required")
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

	msgs, err := h.service.ListMessages(r.Context(), matchID, limit)
	if err != nil {
		writeChatError(w, err, "failed to list messages")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MessagesResponse{Items: dto.MapMessages(msgs)})
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	matchID := chi.URLParam(r, "matchID")
	messageID := chi.URLParam(r, "messageID")
	if matchID == "" || messageID == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "match id and message id are required")
		return
	}

	if err := h.service.MarkRead(r.Context(), matchID, messageID); err != nil {
		writeChatError(w, err, "failed to mark message read")
		return
	}

	httperrors.Write(w, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{OK: true})
}

func (h *ChatHandler) Edit(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	matchID := chi.URLParam(r, "matchID")
	messageID := chi.URLParam(r, "messageID")
	if matchID == "" || messageID == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "match id and message id are required")
		return
	}

	var req dto.EditMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	msg, err := h.service.Edit(r.Context(), matchID, messageID, req.Body)
	if err != nil {
		writeChatError(w, err, "failed to edit message")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MapMessage(msg))
}

func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, ok := authsvc.IdentityFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CHAT_SERVICE_UNAVAILABLE", "chat service is unavailable")
		return
	}

	matchID := chi.URLParam(r, "matchID")
	messageID := chi.URLParam(r, "messageID")
	if matchID == "" || messageID == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "match id and message id are required")
		return
	}

	if err := h.service.Delete(r.Context(), matchID, messageID); err != nil {
		writeChatError(w, err, "failed to delete message")
		return
	}

	httperrors.Write(w, http.StatusOK, struct {
		OK bool `json:"ok"`
	}{OK: true})
}

func writeChatError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, chatsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid message")
	case errors.Is(err, chatsvc.ErrUnauthorized):
		writeForbidden(w, "FORBIDDEN", "cannot send on behalf of another user")
	case errors.Is(err, chatsvc.ErrForbidden):
		writeForbidden(w, "FORBIDDEN", "not a participant of this match")
	case errors.Is(err, pgrepo.ErrMatchNotFound):
		writeNotFound(w, "MATCH_NOT_FOUND", "match does not exist")
	case errors.Is(err, pgrepo.ErrMessageNotFound):
		writeNotFound(w, "MESSAGE_NOT_FOUND", "message does not exist")
	default:
		writeStoreError(w, err, fallback)
	}
}
