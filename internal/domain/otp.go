package domain

import "time"

// OTP is a single-use, purpose-scoped, time-boxed verification code.
// At most one pending (unused, unexpired) OTP exists per (user, purpose);
// issuing a new one marks all prior pending codes of that purpose used.
type OTP struct {
	ID        int64          `json:"-"`
	UserID    int64          `json:"-"`
	Code      string         `json:"-"`
	Purpose   string         `json:"purpose"`
	ExpiresAt time.Time      `json:"expires_at"`
	Used      bool           `json:"used"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

const (
	PurposePasswordReset     = "password_reset"
	PurposeEmailVerification = "email_verification"
	Purpose2FA               = "2fa"
	PurposePhoneVerification = "phone_verification"
)

// Pending reports whether the code can still be consumed at t.
func (o *OTP) Pending(t time.Time) bool {
	return !o.Used && t.Before(o.ExpiresAt)
}
