package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"studydeck/internal/model"
	"studydeck/internal/store"
)

func (h *Handler) handleListSets(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	sets, err := h.store.ListFlashcardSets(user.ID)
	if err != nil {
		slog.Error("list flashcard sets", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if sets == nil {
		sets = []model.FlashcardSet{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"sets": sets})
}

type createSetRequest struct {
	Name       string            `json:"name"`
	Tags       []string          `json:"tags"`
	Flashcards []model.Flashcard `json:"flashcards"`
}

func (h *Handler) handleCreateSet(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req createSetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "set name is required")
		return
	}
	if len(req.Flashcards) == 0 {
		respondError(w, http.StatusBadRequest, "a set needs at least one flashcard")
		return
	}

	id, err := h.store.CreateFlashcardSet(model.FlashcardSet{
		UserID:     user.ID,
		Name:       req.Name,
		Tags:       req.Tags,
		Flashcards: req.Flashcards,
	})
	if err != nil {
		var dup *store.ErrDuplicateSetName
		if errors.As(err, &dup) {
			respondError(w, http.StatusConflict, dup.Error())
			return
		}
		slog.Error("create flashcard set", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	set, err := h.store.GetFlashcardSet(user.ID, id)
	if err != nil || set == nil {
		slog.Error("reload created set", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusCreated, set)
}

type generateSetRequest struct {
	Name     string   `json:"name"`
	Tags     []string `json:"tags"`
	Topic    string   `json:"topic"`
	NumCards int      `json:"numCards"`
}

// handleGenerateSet creates a set from AI-generated flashcards.
func (h *Handler) handleGenerateSet(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req generateSetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "set name is required")
		return
	}
	if req.NumCards < 1 {
		req.NumCards = 10
	}

	cards, err := h.cards.Generate(r.Context(), req.Topic, req.NumCards)
	if err != nil {
		slog.Error("generate flashcards", "error", err)
		respondError(w, http.StatusBadGateway, "Failed to generate flashcards")
		return
	}

	id, err := h.store.CreateFlashcardSet(model.FlashcardSet{
		UserID:     user.ID,
		Name:       req.Name,
		Tags:       req.Tags,
		Flashcards: cards,
	})
	if err != nil {
		var dup *store.ErrDuplicateSetName
		if errors.As(err, &dup) {
			respondError(w, http.StatusConflict, dup.Error())
			return
		}
		slog.Error("create flashcard set", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	set, err := h.store.GetFlashcardSet(user.ID, id)
	if err != nil || set == nil {
		slog.Error("reload created set", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusCreated, set)
}

func (h *Handler) handleGetSet(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	set := h.loadSet(w, r, user)
	if set == nil {
		return
	}
	respondJSON(w, http.StatusOK, set)
}

func (h *Handler) handleDeleteSet(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	id, err := urlID(r, "setID")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.SoftDeleteFlashcardSet(user.ID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "flashcard set not found")
			return
		}
		slog.Error("delete flashcard set", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
