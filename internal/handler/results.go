package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"studydeck/internal/model"
	"studydeck/internal/store"
)

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	filter := store.ResultFilter{
		Tag:  r.URL.Query().Get("tag"),
		Date: r.URL.Query().Get("date"),
	}
	if p := r.URL.Query().Get("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil || page < 1 {
			respondError(w, http.StatusBadRequest, "invalid page")
			return
		}
		filter.Page = page
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	results, err := h.store.ListTestResults(user.ID, filter)
	if err != nil {
		slog.Error("list test results", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if results == nil {
		results = []model.TestResult{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) handleResultStats(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	stats, err := h.store.GetResultStats(user.ID)
	if err != nil {
		slog.Error("get result stats", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}
