package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/pixshare/pixshare-api/internal/domain"
	"github.com/pixshare/pixshare-api/internal/platform/token"
	"github.com/pixshare/pixshare-api/internal/service"
	"github.com/pixshare/pixshare-api/pkg/config"
	"github.com/pixshare/pixshare-api/pkg/logger"
)

type contextKey string

const claimsKey contextKey = "claims"

type Handlers struct {
	authService       service.AuthService
	contentService    service.ContentService
	engagementService service.EngagementService
	adminService      service.AdminService
	tokens            *token.Issuer
	config            *config.Config
}

func New(
	authService service.AuthService,
	contentService service.ContentService,
	engagementService service.EngagementService,
	adminService service.AdminService,
	tokens *token.Issuer,
	config *config.Config,
) *Handlers {
	return &Handlers{
		authService:       authService,
		contentService:    contentService,
		engagementService: engagementService,
		adminService:      adminService,
		tokens:            tokens,
		config:            config,
	}
}

// Middleware for JWT authentication
func (h *Handlers) RequireJWT(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header", "UNAUTHORIZED")
				return
			}

			raw := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := h.tokens.Verify(raw, token.TypeAccess)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token", "INVALID_TOKEN")
				return
			}

			if requiredRole != "" && claims.Role != requiredRole && claims.Role != domain.RoleAdmin {
				writeError(w, http.StatusForbidden, "Insufficient permissions", "FORBIDDEN")
				return
			}

			ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.UserID())
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Helper functions
func getClaims(r *http.Request) *token.Claims {
	if claims, ok := r.Context().Value(claimsKey).(*token.Claims); ok {
		return claims
	}
	return nil
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	response := map[string]string{
		"error": message,
		"code":  code,
	}
	writeJSON(w, statusCode, response)
}

// writeDomainError maps a typed domain error to its contract status and
// code; anything untyped becomes a generic 500 so internals never leak.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var domErr *domain.Error
	if errors.As(err, &domErr) {
		if domErr.Status >= http.StatusInternalServerError {
			logger.ErrorContext(r.Context(), "Request failed", "code", domErr.Code, "error", err)
		}
		writeError(w, domErr.Status, domErr.Message, domErr.Code)
		return
	}

	logger.ErrorContext(r.Context(), "Request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again later", "INTERNAL_ERROR")
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
