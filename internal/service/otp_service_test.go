package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pixshare/pixshare-api/internal/domain"
	"github.com/pixshare/pixshare-api/internal/service"
	"github.com/pixshare/pixshare-api/pkg/config"
)

func testOTPConfig() config.OTPConfig {
	return config.OTPConfig{
		EmailVerificationTTL: 15 * time.Minute,
		PasswordResetTTL:     10 * time.Minute,
		RateLimitWindow:      15 * time.Minute,
		RateLimitMax:         3,
	}
}

func TestOTP_Issue_InvalidatesPriorPending(t *testing.T) {
	svc := service.NewOTPService(testOTPConfig())
	repo := newMockOTPRepo()
	ctx := context.Background()

	first, err := svc.Issue(ctx, repo, 1, domain.PurposePasswordReset, service.IssueOptions{})
	if err != nil {
		t.Fatalf("first issue failed: %v", err)
	}

	second, err := svc.Issue(ctx, repo, 1, domain.PurposePasswordReset, service.IssueOptions{})
	if err != nil {
		t.Fatalf("second issue failed: %v", err)
	}

	// The first code must no longer be consumable.
	if got, _ := svc.VerifyAndConsume(ctx, repo, 1, first.Code, domain.PurposePasswordReset); got != nil {
		t.Fatal("expected first code to be invalidated by reissue")
	}
	if got, _ := svc.VerifyAndConsume(ctx, repo, 1, second.Code, domain.PurposePasswordReset); got == nil {
		t.Fatal("expected second code to be consumable")
	}
}

func TestOTP_Consume_OnlyOnce(t *testing.T) {
	svc := service.NewOTPService(testOTPConfig())
	repo := newMockOTPRepo()
	ctx := context.Background()

	otp, err := svc.Issue(ctx, repo, 1, domain.PurposeEmailVerification, service.IssueOptions{})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if got, _ := svc.VerifyAndConsume(ctx, repo, 1, otp.Code, domain.PurposeEmailVerification); got == nil {
		t.Fatal("expected first consume to succeed")
	}
	if got, _ := svc.VerifyAndConsume(ctx, repo, 1, otp.Code, domain.PurposeEmailVerification); got != nil {
		t.Fatal("expected second consume to fail")
	}
}

func TestOTP_Verify_DoesNotConsume(t *testing.T) {
	svc := service.NewOTPService(testOTPConfig())
	repo := newMockOTPRepo()
	ctx := context.Background()

	otp, err := svc.Issue(ctx, repo, 1, domain.PurposeEmailVerification, service.IssueOptions{})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if got, _ := svc.Verify(ctx, repo, 1, otp.Code, domain.PurposeEmailVerification); got == nil {
		t.Fatal("expected verify to find the pending code")
	}
	// Still consumable afterwards.
	if got, _ := svc.VerifyAndConsume(ctx, repo, 1, otp.Code, domain.PurposeEmailVerification); got == nil {
		t.Fatal("expected code to remain consumable after verify")
	}
}

func TestOTP_Issue_RateLimited(t *testing.T) {
	svc := service.NewOTPService(testOTPConfig())
	repo := newMockOTPRepo()
	ctx := context.Background()

	var last *domain.OTP
	for i := 0; i < 3; i++ {
		otp, err := svc.Issue(ctx, repo, 1, domain.PurposePasswordReset, service.IssueOptions{})
		if err != nil {
			t.Fatalf("issue %d failed: %v", i+1, err)
		}
		last = otp
	}

	_, err := svc.Issue(ctx, repo, 1, domain.PurposePasswordReset, service.IssueOptions{})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// The refused issue must not have touched the pending code.
	pending := repo.pending(1, domain.PurposePasswordReset)
	if pending == nil || pending.Code != last.Code {
		t.Fatal("expected the last issued code to survive a rate-limited issue")
	}
}

func TestOTP_Issue_RateLimitPerPurpose(t *testing.T) {
	svc := service.NewOTPService(testOTPConfig())
	repo := newMockOTPRepo()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Issue(ctx, repo, 1, domain.PurposePasswordReset, service.IssueOptions{}); err != nil {
			t.Fatalf("issue %d failed: %v", i+1, err)
		}
	}

	// A different purpose has its own window.
	if _, err := svc.Issue(ctx, repo, 1, domain.PurposeEmailVerification, service.IssueOptions{}); err != nil {
		t.Fatalf("expected email verification issue to succeed, got %v", err)
	}
	// 2FA is not rate limited at all.
	for i := 0; i < 5; i++ {
		if _, err := svc.Issue(ctx, repo, 1, domain.Purpose2FA, service.IssueOptions{}); err != nil {
			t.Fatalf("2fa issue %d failed: %v", i+1, err)
		}
	}
}

func TestOTP_CodeShape(t *testing.T) {
	svc := service.NewOTPService(testOTPConfig())
	repo := newMockOTPRepo()
	ctx := context.Background()

	reset, err := svc.Issue(ctx, repo, 1, domain.PurposePasswordReset, service.IssueOptions{})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if len(reset.Code) != 8 {
		t.Fatalf("expected 8-digit reset code, got %q", reset.Code)
	}
	for _, c := range reset.Code {
		if c < '0' || c > '9' {
			t.Fatalf("expected numeric code, got %q", reset.Code)
		}
	}

	twofa, err := svc.Issue(ctx, repo, 2, domain.Purpose2FA, service.IssueOptions{})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if len(twofa.Code) != 6 {
		t.Fatalf("expected 6-digit 2fa code, got %q", twofa.Code)
	}

	alnum, err := svc.Issue(ctx, repo, 3, domain.Purpose2FA, service.IssueOptions{Alphanumeric: true})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if len(alnum.Code) != 8 {
		t.Fatalf("expected 8-char alphanumeric code, got %q", alnum.Code)
	}
}

func TestOTP_CleanupExpired(t *testing.T) {
	svc := service.NewOTPService(testOTPConfig())
	repo := newMockOTPRepo()
	ctx := context.Background()

	// One expired, one live.
	repo.Create(ctx, &domain.OTP{UserID: 1, Code: "11111111", Purpose: domain.Purpose2FA, ExpiresAt: time.Now().Add(-time.Minute)})
	repo.Create(ctx, &domain.OTP{UserID: 1, Code: "22222222", Purpose: domain.Purpose2FA, ExpiresAt: time.Now().Add(time.Minute)})

	n, err := svc.CleanupExpired(ctx, repo)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired code cleaned, got %d", n)
	}

	if got, _ := svc.VerifyAndConsume(ctx, repo, 1, "22222222", domain.Purpose2FA); got == nil {
		t.Fatal("expected live code to survive cleanup")
	}
}
