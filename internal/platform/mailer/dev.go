package mailer

import (
	"time"

	"github.com/pixshare/pixshare-api/pkg/logger"
)

// DevMailer prints emails to the log instead of sending them.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) Send(toEmail, toName, subject, text, html string) error {
	logger.Info("[DEV MAIL]",
		"to", toEmail,
		"name", toName,
		"subject", subject,
		"text", text,
	)
	return nil
}

func (d *DevMailer) SendOTP(toEmail, toName, purpose, code string, ttl time.Duration) error {
	logger.Info("[DEV MAIL] verification code",
		"to", toEmail,
		"purpose", purpose,
		"code", code,
		"expires_in", ttl.String(),
	)
	return nil
}
