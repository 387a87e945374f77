package mailer

import (
	"fmt"
	"time"

	"github.com/pixshare/pixshare-api/internal/domain"
)

// Service is the outbound email collaborator. Sends are fire-and-forget
// from the auth workflows: failures are logged, never surfaced to callers.
type Service interface {
	Send(toEmail, toName, subject, text, html string) error
	SendOTP(toEmail, toName, purpose, code string, ttl time.Duration) error
}

func otpEmail(purpose, code string, ttl time.Duration) (subject, text, html string) {
	minutes := int(ttl.Minutes())

	switch purpose {
	case domain.PurposePasswordReset:
		subject = "Your PixShare password reset code"
	case domain.PurposeEmailVerification:
		subject = "Verify your PixShare email"
	default:
		subject = "Your PixShare verification code"
	}

	text = fmt.Sprintf("Your code is %s. It expires in %d minutes.", code, minutes)
	html = fmt.Sprintf("<p>Your code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p>", code, minutes)
	return subject, text, html
}
