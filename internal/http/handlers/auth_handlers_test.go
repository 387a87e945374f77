package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pixshare/pixshare-api/internal/domain"
	"github.com/pixshare/pixshare-api/internal/http/handlers"
	"github.com/pixshare/pixshare-api/internal/platform/token"
	"github.com/pixshare/pixshare-api/internal/service"
	"github.com/pixshare/pixshare-api/pkg/config"
)

// ---------- Mocks ----------

type mockAuthService struct {
	registerErr  error
	loginErr     error
	lastVerified string
	changeErr    error
}

func testUserInfo() *domain.UserInfo {
	return &domain.UserInfo{
		ID:        "user-123",
		FirstName: "Test",
		LastName:  "User",
		Email:     "test@example.com",
		Status:    domain.StatusActive,
		Role:      domain.RoleUser,
		Credits:   domain.SignupCredits,
	}
}

func (m *mockAuthService) Register(_ context.Context, req *domain.RegisterRequest) (*domain.UserInfo, error) {
	if m.registerErr != nil {
		return nil, m.registerErr
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return testUserInfo(), nil
}

func (m *mockAuthService) Login(_ context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &domain.LoginResponse{
		Message:      "Login successful",
		User:         testUserInfo(),
		AccessToken:  "access",
		RefreshToken: "refresh",
	}, nil
}

func (m *mockAuthService) GoogleLogin(context.Context, string) (*domain.LoginResponse, error) {
	return &domain.LoginResponse{User: testUserInfo()}, nil
}

func (m *mockAuthService) FacebookLogin(context.Context, string) (*domain.LoginResponse, error) {
	return &domain.LoginResponse{User: testUserInfo()}, nil
}

func (m *mockAuthService) RefreshToken(context.Context, string) (*domain.LoginResponse, error) {
	return &domain.LoginResponse{User: testUserInfo()}, nil
}

func (m *mockAuthService) ForgotPassword(context.Context, string) error { return nil }

func (m *mockAuthService) VerifyResetOTP(_ context.Context, _, code string) (string, error) {
	if code != "12345678" {
		return "", domain.ErrInvalidOTP
	}
	return "reset-token", nil
}

func (m *mockAuthService) ResetPassword(context.Context, string, string) error { return nil }

func (m *mockAuthService) RequestEmailVerification(context.Context, string) error { return nil }

func (m *mockAuthService) VerifyEmail(_ context.Context, userID, _ string) error {
	m.lastVerified = userID
	return nil
}

func (m *mockAuthService) ChangePassword(context.Context, string, *domain.ChangePasswordRequest) error {
	return m.changeErr
}

func (m *mockAuthService) VerifyToken(context.Context, string) (*domain.UserInfo, error) {
	return testUserInfo(), nil
}

func (m *mockAuthService) CleanupExpiredOTPs(context.Context) (int64, error) { return 0, nil }

var _ service.AuthService = (*mockAuthService)(nil)

// ---------- Test Setup ----------

func setupTestServer(authSvc service.AuthService) (*httptest.Server, *token.Issuer) {
	cfg := &config.Config{}
	tokens := token.NewIssuer("test-secret", time.Hour, time.Hour)
	h := handlers.New(authSvc, nil, nil, nil, tokens, cfg)

	r := chi.NewRouter()
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/forgot-password", h.ForgotPassword)
	r.Post("/auth/verify-otp", h.VerifyResetOTP)
	r.Post("/auth/verify-token", h.VerifyToken)
	r.Group(func(r chi.Router) {
		r.Use(h.RequireJWT(""))
		r.Post("/auth/verify-email", h.VerifyEmail)
		r.Post("/auth/change-password", h.ChangePassword)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.RequireJWT("admin"))
		r.Get("/admin/ping", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	return httptest.NewServer(r), tokens
}

func postJSON(t *testing.T, url string, body interface{}, wantStatus int) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("expected status %d, got %d", wantStatus, resp.StatusCode)
	}
	return resp
}

func authedPost(t *testing.T, url, bearer string, body interface{}, wantStatus int) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("expected status %d, got %d", wantStatus, resp.StatusCode)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return out
}

func accessTokenFor(t *testing.T, tokens *token.Issuer, role string) string {
	t.Helper()
	access, _, err := tokens.IssuePair(&domain.User{ExternalID: "user-123", Email: "test@example.com", Role: role})
	if err != nil {
		t.Fatalf("issue pair failed: %v", err)
	}
	return access
}

// ---------- Tests ----------

func TestRegister_Created(t *testing.T) {
	server, _ := setupTestServer(&mockAuthService{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/auth/register", map[string]string{
		"firstName": "Test",
		"lastName":  "User",
		"email":     "test@example.com",
		"password":  "password123",
	}, http.StatusCreated)

	result := decode(t, resp)
	user, ok := result["data"].(map[string]interface{})
	if !ok || user["id"] != "user-123" {
		t.Fatalf("expected registered user in response, got %v", result)
	}
}

func TestRegister_DomainErrorShape(t *testing.T) {
	server, _ := setupTestServer(&mockAuthService{registerErr: domain.ErrEmailExists})
	defer server.Close()

	resp := postJSON(t, server.URL+"/auth/register", map[string]string{
		"firstName": "Test",
		"lastName":  "User",
		"email":     "test@example.com",
		"password":  "password123",
	}, http.StatusBadRequest)

	result := decode(t, resp)
	if result["code"] != "EMAIL_EXISTS" {
		t.Fatalf("expected EMAIL_EXISTS code, got %v", result)
	}
}

func TestRegister_InvalidJSON(t *testing.T) {
	server, _ := setupTestServer(&mockAuthService{})
	defer server.Close()

	resp, err := http.Post(server.URL+"/auth/register", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", resp.StatusCode)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	server, _ := setupTestServer(&mockAuthService{loginErr: domain.ErrInvalidCredentials})
	defer server.Close()

	resp := postJSON(t, server.URL+"/auth/login", map[string]string{
		"email":    "test@example.com",
		"password": "wrong",
	}, http.StatusUnauthorized)

	result := decode(t, resp)
	if result["code"] != "INVALID_CREDENTIALS" {
		t.Fatalf("expected INVALID_CREDENTIALS code, got %v", result)
	}
}

func TestForgotPassword_GenericMessage(t *testing.T) {
	server, _ := setupTestServer(&mockAuthService{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/auth/forgot-password", map[string]string{
		"email": "anyone@example.com",
	}, http.StatusOK)

	result := decode(t, resp)
	if result["message"] == "" {
		t.Fatal("expected a generic success message")
	}
}

func TestVerifyResetOTP(t *testing.T) {
	server, _ := setupTestServer(&mockAuthService{})
	defer server.Close()

	resp := postJSON(t, server.URL+"/auth/verify-otp", map[string]string{
		"email": "test@example.com",
		"code":  "12345678",
	}, http.StatusOK)

	result := decode(t, resp)
	if result["resetToken"] != "reset-token" {
		t.Fatalf("expected resetToken, got %v", result)
	}

	bad := postJSON(t, server.URL+"/auth/verify-otp", map[string]string{
		"email": "test@example.com",
		"code":  "00000000",
	}, http.StatusBadRequest)
	badResult := decode(t, bad)
	if badResult["code"] != "INVALID_OTP" {
		t.Fatalf("expected INVALID_OTP, got %v", badResult)
	}
}

func TestRequireJWT(t *testing.T) {
	svc := &mockAuthService{}
	server, tokens := setupTestServer(svc)
	defer server.Close()

	// No token.
	authedPost(t, server.URL+"/auth/verify-email", "", map[string]string{"code": "12345678"}, http.StatusUnauthorized)

	// Garbage token.
	authedPost(t, server.URL+"/auth/verify-email", "garbage", map[string]string{"code": "12345678"}, http.StatusUnauthorized)

	// Valid token reaches the handler with the subject's id.
	access := accessTokenFor(t, tokens, domain.RoleUser)
	resp := authedPost(t, server.URL+"/auth/verify-email", access, map[string]string{"code": "12345678"}, http.StatusOK)
	resp.Body.Close()
	if svc.lastVerified != "user-123" {
		t.Fatalf("expected handler to see user-123, got %q", svc.lastVerified)
	}
}

func TestRequireJWT_AdminRole(t *testing.T) {
	server, tokens := setupTestServer(&mockAuthService{})
	defer server.Close()

	userToken := accessTokenFor(t, tokens, domain.RoleUser)
	adminToken := accessTokenFor(t, tokens, domain.RoleAdmin)

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for user role, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, server.URL+"/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for admin role, got %d", resp.StatusCode)
	}
}

func TestChangePassword_RequiresAuth(t *testing.T) {
	server, tokens := setupTestServer(&mockAuthService{})
	defer server.Close()

	authedPost(t, server.URL+"/auth/change-password", "", map[string]string{
		"currentPassword": "old", "newPassword": "newpassword456",
	}, http.StatusUnauthorized)

	access := accessTokenFor(t, tokens, domain.RoleUser)
	resp := authedPost(t, server.URL+"/auth/change-password", access, map[string]string{
		"currentPassword": "old", "newPassword": "newpassword456",
	}, http.StatusOK)
	resp.Body.Close()
}

func TestVerifyToken_Endpoint(t *testing.T) {
	server, tokens := setupTestServer(&mockAuthService{})
	defer server.Close()

	// Missing header.
	req, _ := http.NewRequest(http.MethodPost, server.URL+"/auth/verify-token", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header, got %d", resp.StatusCode)
	}

	access := accessTokenFor(t, tokens, domain.RoleUser)
	req, _ = http.NewRequest(http.MethodPost, server.URL+"/auth/verify-token", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	result := decode(t, resp)
	user, ok := result["user"].(map[string]interface{})
	if !ok || user["email"] != "test@example.com" {
		t.Fatalf("expected user in response, got %v", result)
	}
}
