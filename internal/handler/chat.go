package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"studydeck/internal/chat"
	appI18n "studydeck/internal/i18n"
	"studydeck/internal/model"
)

func (h *Handler) handleOpenChat(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	set := h.loadSet(w, r, user)
	if set == nil {
		return
	}

	session, err := h.chat.Open(r.Context(), user.ID, set)
	if err != nil {
		slog.Error("open chat session", "set_id", set.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, session)
}

type sendChatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) handleSendChat(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	set := h.loadSet(w, r, user)
	if set == nil {
		return
	}

	var req sendChatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "message must not be empty")
		return
	}

	session, err := h.chat.Send(r.Context(), user.ID, set, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrHistoryFull) {
			respondError(w, http.StatusConflict, appI18n.T(r.Context(), "ChatHistoryFull"))
			return
		}
		slog.Error("send chat message", "set_id", set.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (h *Handler) handleClearChat(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	set := h.loadSet(w, r, user)
	if set == nil {
		return
	}

	session, err := h.chat.Clear(r.Context(), user.ID, set)
	if err != nil {
		slog.Error("clear chat session", "set_id", set.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, session)
}
