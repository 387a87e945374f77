package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/pixshare/pixshare-api/internal/domain"
	"github.com/pixshare/pixshare-api/internal/repo/postgres"
	"github.com/pixshare/pixshare-api/pkg/config"
)

// OTPService is the one-time-passcode engine. It owns code generation,
// invalidation-on-reissue, issuance rate limiting, and atomic consumption.
// Methods take the repository handle explicitly so they join whatever
// transaction the calling workflow already runs in.
type OTPService struct {
	cfg config.OTPConfig
	now func() time.Time
}

func NewOTPService(cfg config.OTPConfig) *OTPService {
	return &OTPService{cfg: cfg, now: time.Now}
}

type IssueOptions struct {
	ExpiresIn    time.Duration
	Length       int
	Alphanumeric bool
	Metadata     map[string]any
}

const otpAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// sensitive purposes are issuance rate-limited to blunt abuse of the
// email side-channel.
func rateLimitedPurpose(purpose string) bool {
	return purpose == domain.PurposePasswordReset || purpose == domain.PurposeEmailVerification
}

func defaultLength(purpose string, alphanumeric bool) int {
	if alphanumeric {
		return 8
	}
	if purpose == domain.Purpose2FA {
		return 6
	}
	return 8
}

// generateNumericCode draws a 32-bit value from crypto/rand and reduces it
// modulo 10^length. The modulo skews digit distribution very slightly for
// ranges that do not divide 2^32; with rate-limited, short-lived codes the
// bias is not exploitable in practice.
func generateNumericCode(length int) (string, error) {
	if length < 4 || length > 9 {
		length = 8
	}
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(b[:])

	mod := uint32(1)
	for i := 0; i < length; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", length, n%mod), nil
}

func generateAlphanumericCode(length int) (string, error) {
	if length < 4 || length > 32 {
		length = 8
	}
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i, v := range b {
		out[i] = otpAlphabet[int(v)%len(otpAlphabet)]
	}
	return string(out), nil
}

// Issue invalidates every pending OTP for (userID, purpose), then creates a
// fresh code. Sensitive purposes are counted against a trailing window
// first; over the limit, Issue returns domain.ErrRateLimited and writes
// nothing — the caller decides whether to surface or swallow that.
func (s *OTPService) Issue(ctx context.Context, repo postgres.OTPRepository, userID int64, purpose string, opts IssueOptions) (*domain.OTP, error) {
	if rateLimitedPurpose(purpose) {
		since := s.now().Add(-s.cfg.RateLimitWindow)
		count, err := repo.CountIssuedSince(ctx, userID, purpose, since)
		if err != nil {
			return nil, fmt.Errorf("failed to count recent otps: %w", err)
		}
		if count >= s.cfg.RateLimitMax {
			return nil, domain.ErrRateLimited
		}
	}

	if _, err := repo.InvalidatePending(ctx, userID, purpose); err != nil {
		return nil, fmt.Errorf("failed to invalidate pending otps: %w", err)
	}

	length := opts.Length
	if length == 0 {
		length = defaultLength(purpose, opts.Alphanumeric)
	}

	var (
		code string
		err  error
	)
	if opts.Alphanumeric {
		code, err = generateAlphanumericCode(length)
	} else {
		code, err = generateNumericCode(length)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	expiresIn := opts.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 15 * time.Minute
	}

	otp := &domain.OTP{
		UserID:    userID,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: s.now().Add(expiresIn),
		Metadata:  opts.Metadata,
	}

	created, err := repo.Create(ctx, otp)
	if err != nil {
		return nil, fmt.Errorf("failed to persist otp: %w", err)
	}
	return created, nil
}

// Verify is a pure read: it reports the pending OTP without consuming it.
// A nil result means no pending, matching, unexpired code exists.
func (s *OTPService) Verify(ctx context.Context, repo postgres.OTPRepository, userID int64, code, purpose string) (*domain.OTP, error) {
	return repo.FindPending(ctx, userID, code, purpose)
}

// VerifyAndConsume flips used=true on the matching pending code. The
// conditional update means at most one of two racing calls gets the row;
// the loser sees nil.
func (s *OTPService) VerifyAndConsume(ctx context.Context, repo postgres.OTPRepository, userID int64, code, purpose string) (*domain.OTP, error) {
	return repo.Consume(ctx, userID, code, purpose)
}

// CleanupExpired marks all expired, unused codes as used. Idempotent;
// safe on a schedule.
func (s *OTPService) CleanupExpired(ctx context.Context, repo postgres.OTPRepository) (int64, error) {
	return repo.CleanupExpired(ctx)
}
