package domain

import (
	"regexp"
	"strings"
	"time"
)

type User struct {
	ID            int64      `json:"-"`
	ExternalID    string     `json:"id"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Email         string     `json:"email"`
	EmailVerified bool       `json:"email_verified"`
	PasswordHash  string     `json:"-"`
	Phone         *string    `json:"phone,omitempty"`
	Status        string     `json:"status"`
	Role          string     `json:"role"`
	ReferralCode  *string    `json:"referral_code,omitempty"`
	ReferredBy    *int64     `json:"-"`
	Credits       int        `json:"credits"`
	DeletedAt     *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Account statuses. Inactive accounts may still authenticate; only
// blocked accounts are refused at login.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusBlocked  = "blocked"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// SignupCredits is granted to every new account.
const SignupCredits = 50

// UserInfo is the client-facing projection of a user. The password hash
// and internal surrogate key never appear here.
type UserInfo struct {
	ID            string  `json:"id"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	Email         string  `json:"email"`
	EmailVerified bool    `json:"emailVerified"`
	Phone         *string `json:"phone,omitempty"`
	Status        string  `json:"status"`
	Role          string  `json:"role"`
	ReferralCode  *string `json:"referralCode,omitempty"`
	Credits       int     `json:"credits"`
}

func (u *User) ToUserInfo() *UserInfo {
	return &UserInfo{
		ID:            u.ExternalID,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Phone:         u.Phone,
		Status:        u.Status,
		Role:          u.Role,
		ReferralCode:  u.ReferralCode,
		Credits:       u.Credits,
	}
}

type RegisterRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Phone        string `json:"phone,omitempty"`
	ReferralCode string `json:"referralCode,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message      string    `json:"message"`
	User         *UserInfo `json:"user"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"idToken"`
}

type FacebookLoginRequest struct {
	AccessToken string `json:"accessToken"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResetPasswordRequest struct {
	ResetToken  string `json:"resetToken"`
	NewPassword string `json:"newPassword"`
}

type VerifyEmailRequest struct {
	Code string `json:"code"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func isValidPassword(password string) bool {
	return len(password) >= 8
}

func (r *RegisterRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.ReferralCode = strings.ToUpper(strings.TrimSpace(r.ReferralCode))
}

func (r *RegisterRequest) Validate() error {
	if r.FirstName == "" {
		return Validation("first name is required")
	}
	if r.LastName == "" {
		return Validation("last name is required")
	}
	if r.Email == "" || !isValidEmail(r.Email) {
		return Validation("a valid email is required")
	}
	if !isValidPassword(r.Password) {
		return Validation("password must be at least 8 characters")
	}
	return nil
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" || !isValidEmail(r.Email) {
		return Validation("a valid email is required")
	}
	if r.Password == "" {
		return Validation("password is required")
	}
	return nil
}

func (r *ForgotPasswordRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *VerifyOTPRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Code = strings.TrimSpace(r.Code)
}

func (r *ResetPasswordRequest) Validate() error {
	if r.ResetToken == "" {
		return Validation("reset token is required")
	}
	if !isValidPassword(r.NewPassword) {
		return Validation("password must be at least 8 characters")
	}
	return nil
}

func (r *ChangePasswordRequest) Validate() error {
	if r.CurrentPassword == "" {
		return Validation("current password is required")
	}
	if !isValidPassword(r.NewPassword) {
		return Validation("password must be at least 8 characters")
	}
	return nil
}
