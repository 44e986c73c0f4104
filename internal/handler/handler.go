// Package handler implements the JSON API.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"studydeck/internal/cardgen"
	"studydeck/internal/chat"
	"studydeck/internal/llm"
	"studydeck/internal/model"
	"studydeck/internal/store"
	"studydeck/internal/testgen"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store     *store.Store
	llm       *llm.Client
	cards     *cardgen.Generator
	questions *testgen.Generator
	tests     *testgen.Manager
	chat      *chat.Service
	config    model.AppConfig
}

// New creates a new Handler.
func New(s *store.Store, l *llm.Client, cfg model.AppConfig) *Handler {
	return &Handler{
		store:     s,
		llm:       l,
		cards:     cardgen.NewGenerator(l),
		questions: testgen.NewGenerator(l),
		tests:     testgen.NewManager(s),
		chat:      chat.NewService(s, l),
		config:    cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/register", h.handleRegister)
	r.Post("/api/login", h.handleLogin)
	r.Post("/api/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/api/me", h.handleMe)

		r.Get("/api/sets", h.handleListSets)
		r.Post("/api/sets", h.handleCreateSet)
		r.Post("/api/sets/generate", h.handleGenerateSet)
		r.Get("/api/sets/{setID}", h.handleGetSet)
		r.Delete("/api/sets/{setID}", h.handleDeleteSet)

		r.Post("/api/sets/{setID}/test", h.handleStartTest)
		r.Get("/api/tests/{testID}", h.handleGetTest)
		r.Post("/api/tests/{testID}/answer", h.handleAnswer)
		r.Post("/api/tests/{testID}/next", h.handleNext)
		r.Post("/api/tests/{testID}/previous", h.handlePrevious)

		r.Get("/api/sets/{setID}/chat", h.handleOpenChat)
		r.Post("/api/sets/{setID}/chat", h.handleSendChat)
		r.Delete("/api/sets/{setID}/chat", h.handleClearChat)

		r.Post("/api/sets/{setID}/review", h.handleGenerateReview)
		r.Get("/api/reviews", h.handleListReviews)
		r.Get("/api/reviews/{reviewID}", h.handleGetReview)
		r.Delete("/api/reviews/{reviewID}", h.handleDeleteReview)

		r.Get("/api/results", h.handleListResults)
		r.Get("/api/results/stats", h.handleResultStats)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/api/admin/users", h.handleListUsers)
			r.Post("/api/admin/users/{userID}/toggle", h.handleToggleUser)
		})
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// urlID parses a chi URL parameter as an int64 ID.
func urlID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// loadSet fetches one of the user's sets, writing the 404 itself when the
// set is missing or soft-deleted.
func (h *Handler) loadSet(w http.ResponseWriter, r *http.Request, user *model.User) *model.FlashcardSet {
	id, err := urlID(r, "setID")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil
	}
	set, err := h.store.GetFlashcardSet(user.ID, id)
	if err != nil {
		slog.Error("get flashcard set", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return nil
	}
	if set == nil {
		respondError(w, http.StatusNotFound, "flashcard set not found")
		return nil
	}
	return set
}
