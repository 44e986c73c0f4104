package handler

import (
	"log/slog"
	"net/http"

	"studydeck/internal/model"
)

type userView struct {
	ID          int64          `json:"id"`
	Username    string         `json:"username"`
	DisplayName string         `json:"displayName"`
	Role        model.UserRole `json:"role"`
	Active      bool           `json:"active"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		slog.Error("list users", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}

	views := make([]userView, len(users))
	for i, u := range users {
		views[i] = userView{
			ID:          u.ID,
			Username:    u.Username,
			DisplayName: u.DisplayName,
			Role:        u.Role,
			Active:      u.Active,
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": views})
}

func (h *Handler) handleToggleUser(w http.ResponseWriter, r *http.Request) {
	admin := model.UserFromContext(r.Context())
	id, err := urlID(r, "userID")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if id == admin.ID {
		respondError(w, http.StatusBadRequest, "cannot disable your own account")
		return
	}

	if err := h.store.ToggleUserActive(id); err != nil {
		slog.Error("toggle user", "user_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "toggled"})
}
