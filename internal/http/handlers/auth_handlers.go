package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pixshare/pixshare-api/internal/domain"
)

// Register handles user registration
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	user, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Registration successful",
		"data":    user,
	})
}

// Login handles email and password authentication
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	response, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// GoogleLogin exchanges a Google ID token for a session
func (h *Handlers) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.GoogleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IDToken == "" {
		writeError(w, http.StatusBadRequest, "idToken is required", "INVALID_INPUT")
		return
	}

	response, err := h.authService.GoogleLogin(r.Context(), req.IDToken)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// FacebookLogin exchanges a Facebook access token for a session
func (h *Handlers) FacebookLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.FacebookLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "accessToken is required", "INVALID_INPUT")
		return
	}

	response, err := h.authService.FacebookLogin(r.Context(), req.AccessToken)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// RefreshToken exchanges a refresh token for a fresh pair
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken is required", "INVALID_INPUT")
		return
	}

	response, err := h.authService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// ForgotPassword starts the password reset flow. The response is the
// same whether or not the email belongs to an account.
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "Email is required", "INVALID_INPUT")
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If an account exists for that email, a reset code has been sent",
	})
}

// VerifyResetOTP trades a valid reset code for a short-lived reset token
func (h *Handlers) VerifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "Email and code are required", "INVALID_INPUT")
		return
	}

	resetToken, err := h.authService.VerifyResetOTP(r.Context(), req.Email, req.Code)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "Code verified",
		"resetToken": resetToken,
	})
}

// ResetPassword completes the reset flow with the token from VerifyResetOTP
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	if err := h.authService.ResetPassword(r.Context(), req.ResetToken, req.NewPassword); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password reset successfully",
	})
}

// RequestEmailVerification emails a fresh verification code to the caller
func (h *Handlers) RequestEmailVerification(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	if err := h.authService.RequestEmailVerification(r.Context(), claims.UserID()); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Verification email sent",
	})
}

// VerifyEmail consumes a verification code for the caller's account
func (h *Handlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	var req domain.VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		writeError(w, http.StatusBadRequest, "Code is required", "INVALID_INPUT")
		return
	}

	if err := h.authService.VerifyEmail(r.Context(), claims.UserID(), strings.TrimSpace(req.Code)); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Email verified successfully",
	})
}

// ChangePassword rotates the caller's password
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required", "UNAUTHORIZED")
		return
	}

	var req domain.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	if err := h.authService.ChangePassword(r.Context(), claims.UserID(), &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password changed successfully",
	})
}

// VerifyToken validates the bearer token and returns its user
func (h *Handlers) VerifyToken(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header", "UNAUTHORIZED")
		return
	}

	user, err := h.authService.VerifyToken(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Token is valid",
		"user":    user,
	})
}
