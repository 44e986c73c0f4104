package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"studydeck/internal/llm"
	"studydeck/internal/llm/prompts"
	"studydeck/internal/model"
)

// handleGenerateReview asks the LLM for a review sheet of a set and saves it.
func (h *Handler) handleGenerateReview(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	set := h.loadSet(w, r, user)
	if set == nil {
		return
	}
	if len(set.Flashcards) == 0 {
		respondError(w, http.StatusBadRequest, "flashcard set has no cards")
		return
	}

	content, err := h.llm.Complete(r.Context(), prompts.BuildReviewPrompt(set), llm.Options{Temperature: 0.7})
	if err != nil {
		slog.Error("generate review", "set_id", set.ID, "error", err)
		respondError(w, http.StatusBadGateway, "Failed to generate review")
		return
	}

	review := model.SavedReview{
		UserID:         user.ID,
		FlashcardSetID: set.ID,
		SetName:        set.Name,
		Content:        content,
	}
	id, err := h.store.InsertSavedReview(review)
	if err != nil {
		slog.Error("save review", "set_id", set.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	review.ID = id
	respondJSON(w, http.StatusCreated, review)
}

func (h *Handler) handleListReviews(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	reviews, err := h.store.ListSavedReviews(user.ID)
	if err != nil {
		slog.Error("list reviews", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if reviews == nil {
		reviews = []model.SavedReview{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

func (h *Handler) handleGetReview(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	id, err := urlID(r, "reviewID")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	review, err := h.store.GetSavedReview(user.ID, id)
	if err != nil {
		slog.Error("get review", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if review == nil {
		respondError(w, http.StatusNotFound, "review not found")
		return
	}
	respondJSON(w, http.StatusOK, review)
}

func (h *Handler) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	id, err := urlID(r, "reviewID")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.DeleteSavedReview(user.ID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "review not found")
			return
		}
		slog.Error("delete review", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
