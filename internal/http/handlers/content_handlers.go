package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pixshare/pixshare-api/internal/domain"
)

// CreateContent registers new content and, for uploads, returns a
// presigned upload URL.
func (h *Handlers) CreateContent(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	var req domain.CreateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	response, err := h.contentService.Create(r.Context(), claims.UserID(), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response)
}

// GetContent returns a single content item
func (h *Handlers) GetContent(w http.ResponseWriter, r *http.Request) {
	content, err := h.contentService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, content)
}

// ListContent returns the public feed, newest first
func (h *Handlers) ListContent(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	contents, err := h.contentService.List(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, contents)
}

// ListMyContent returns the caller's own content, deleted items excluded
func (h *Handlers) ListMyContent(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}
	limit, offset := parsePagination(r)

	contents, err := h.contentService.ListMine(r.Context(), claims.UserID(), limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, contents)
}

// DeleteContent soft-deletes content owned by the caller (admins may
// delete anyone's)
func (h *Handlers) DeleteContent(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	isAdmin := claims.Role == domain.RoleAdmin
	if err := h.contentService.Delete(r.Context(), claims.UserID(), chi.URLParam(r, "id"), isAdmin); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DownloadContent returns a presigned download URL for the stored object
func (h *Handlers) DownloadContent(w http.ResponseWriter, r *http.Request) {
	url, err := h.contentService.DownloadURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"downloadUrl": url,
	})
}
