package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pixshare/pixshare-api/internal/domain"
)

// Admin handlers. All routes below are mounted behind RequireJWT("admin").

// ListUsers returns all users (admin only)
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	users, err := h.adminService.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	userInfos := make([]*domain.UserInfo, len(users))
	for i := range users {
		userInfos[i] = users[i].ToUserInfo()
	}

	writeJSON(w, http.StatusOK, userInfos)
}

// GetUser returns a single user (admin only)
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.adminService.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user.ToUserInfo())
}

// SetUserStatus blocks, unblocks, or deactivates a user (admin only)
func (h *Handlers) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeError(w, http.StatusBadRequest, "Status is required", "INVALID_INPUT")
		return
	}

	if err := h.adminService.SetUserStatus(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "User status updated",
	})
}

// AdjustCredits credits or debits a user's balance (admin only)
func (h *Handlers) AdjustCredits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}
	if req.Delta == 0 {
		writeError(w, http.StatusBadRequest, "Delta must be non-zero", "INVALID_INPUT")
		return
	}

	credits, err := h.adminService.AdjustCredits(r.Context(), chi.URLParam(r, "id"), req.Delta)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Credits adjusted",
		"credits": credits,
	})
}

// DeleteUser soft-deletes a user (admin only)
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.adminService.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PurgeUser permanently removes a user and all dependent rows (admin only)
func (h *Handlers) PurgeUser(w http.ResponseWriter, r *http.Request) {
	if err := h.adminService.PurgeUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CleanupOTPs expires stale verification codes on demand (admin only)
func (h *Handlers) CleanupOTPs(w http.ResponseWriter, r *http.Request) {
	count, err := h.adminService.CleanupOTPs(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Cleanup complete",
		"expired": count,
	})
}
