package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pixshare/pixshare-api/internal/domain"
)

// LikeContent records a like. Liking twice is a no-op.
func (h *Handlers) LikeContent(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	if err := h.engagementService.Like(r.Context(), claims.UserID(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Liked",
	})
}

// UnlikeContent removes a like. Unliking twice is a no-op.
func (h *Handlers) UnlikeContent(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	if err := h.engagementService.Unlike(r.Context(), claims.UserID(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Unliked",
	})
}

// CommentContent posts a comment on content
func (h *Handlers) CommentContent(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	var req domain.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	comment, err := h.engagementService.Comment(r.Context(), claims.UserID(), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

// ListComments returns a content item's comments, newest first
func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	comments, err := h.engagementService.ListComments(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, comments)
}

// ViewContent records a view, deduplicated per user per day
func (h *Handlers) ViewContent(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	if err := h.engagementService.RecordView(r.Context(), claims.UserID(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "View recorded",
	})
}
