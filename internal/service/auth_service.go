package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pixshare/pixshare-api/internal/domain"
	"github.com/pixshare/pixshare-api/internal/platform/mailer"
	"github.com/pixshare/pixshare-api/internal/platform/oauth"
	"github.com/pixshare/pixshare-api/internal/platform/password"
	"github.com/pixshare/pixshare-api/internal/platform/token"
	"github.com/pixshare/pixshare-api/internal/repo/postgres"
	"github.com/pixshare/pixshare-api/pkg/config"
	"github.com/pixshare/pixshare-api/pkg/events"
	"github.com/pixshare/pixshare-api/pkg/logger"
)

type AuthService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.UserInfo, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
	GoogleLogin(ctx context.Context, idToken string) (*domain.LoginResponse, error)
	FacebookLogin(ctx context.Context, accessToken string) (*domain.LoginResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*domain.LoginResponse, error)
	ForgotPassword(ctx context.Context, email string) error
	VerifyResetOTP(ctx context.Context, email, code string) (string, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	RequestEmailVerification(ctx context.Context, userID string) error
	VerifyEmail(ctx context.Context, userID, code string) error
	ChangePassword(ctx context.Context, userID string, req *domain.ChangePasswordRequest) error
	VerifyToken(ctx context.Context, accessToken string) (*domain.UserInfo, error)
	CleanupExpiredOTPs(ctx context.Context) (int64, error)
}

type authService struct {
	store    postgres.Store
	otp      *OTPService
	tokens   *token.Issuer
	mailer   mailer.Service
	google   oauth.Provider
	facebook oauth.Provider
	bus      events.Publisher
	cfg      *config.Config
}

func NewAuthService(
	store postgres.Store,
	otp *OTPService,
	tokens *token.Issuer,
	mailSvc mailer.Service,
	google oauth.Provider,
	facebook oauth.Provider,
	bus events.Publisher,
	cfg *config.Config,
) AuthService {
	return &authService{
		store:    store,
		otp:      otp,
		tokens:   tokens,
		mailer:   mailSvc,
		google:   google,
		facebook: facebook,
		bus:      bus,
		cfg:      cfg,
	}
}

// wrap keeps typed domain errors intact and folds everything else into a
// workflow-specific internal error, so clients never see raw failures.
func wrap(code string, err error) error {
	if err == nil {
		return nil
	}
	var domErr *domain.Error
	if errors.As(err, &domErr) {
		return domErr
	}
	return domain.Internal(code, err)
}

func (s *authService) publish(ctx context.Context, subject string, payload any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, subject, payload); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}

func (s *authService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.UserInfo, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	passwordHash, err := password.Hash(req.Password)
	if err != nil {
		return nil, wrap("REGISTER_ERROR", err)
	}

	var created *domain.User
	err = s.store.WithTx(ctx, func(ctx context.Context, tx postgres.Store) error {
		existing, err := tx.Users().FindByEmail(ctx, req.Email)
		if err != nil {
			return fmt.Errorf("failed to check existing user: %w", err)
		}
		if existing != nil {
			return domain.ErrEmailExists
		}

		var referredBy *int64
		if req.ReferralCode != "" {
			referrer, err := tx.Users().FindByReferralCode(ctx, req.ReferralCode)
			if err != nil {
				return fmt.Errorf("failed to resolve referral code: %w", err)
			}
			// Unknown codes are ignored rather than rejected so a stale
			// invite link does not break registration.
			if referrer != nil {
				referredBy = &referrer.ID
			}
		}

		referralCode, err := generateAlphanumericCode(8)
		if err != nil {
			return fmt.Errorf("failed to generate referral code: %w", err)
		}

		var phone *string
		if req.Phone != "" {
			phone = &req.Phone
		}

		created, err = tx.Users().Create(ctx, &domain.User{
			ExternalID:   uuid.NewString(),
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        req.Email,
			PasswordHash: passwordHash,
			Phone:        phone,
			Status:       domain.StatusActive,
			Role:         domain.RoleUser,
			ReferralCode: &referralCode,
			ReferredBy:   referredBy,
			Credits:      domain.SignupCredits,
		})
		return err
	})
	if err != nil {
		return nil, wrap("REGISTER_ERROR", err)
	}

	event := events.UserRegisteredEvent{
		UserID:       created.ExternalID,
		Email:        created.Email,
		RegisteredAt: created.CreatedAt,
	}
	if created.ReferralCode != nil {
		event.ReferralCode = *created.ReferralCode
	}
	s.publish(ctx, events.UserRegistered, event)

	return created.ToUserInfo(), nil
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.store.Users().FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, wrap("LOGIN_ERROR", err)
	}
	if user == nil {
		// Same error whether the email is unknown or the password is
		// wrong: no account enumeration through login.
		return nil, domain.ErrInvalidCredentials
	}

	valid, err := password.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, wrap("LOGIN_ERROR", err)
	}
	if !valid {
		return nil, domain.ErrInvalidCredentials
	}

	// Inactive accounts may still log in; only blocked ones are refused.
	if user.Status == domain.StatusBlocked {
		return nil, domain.ErrAccountBlocked
	}

	return s.loginResponse(user, "Login successful")
}

func (s *authService) loginResponse(user *domain.User, message string) (*domain.LoginResponse, error) {
	access, refresh, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, wrap("LOGIN_ERROR", err)
	}
	return &domain.LoginResponse{
		Message:      message,
		User:         user.ToUserInfo(),
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func (s *authService) GoogleLogin(ctx context.Context, idToken string) (*domain.LoginResponse, error) {
	return s.federatedLogin(ctx, s.google, idToken, "GOOGLE_LOGIN_ERROR")
}

func (s *authService) FacebookLogin(ctx context.Context, accessToken string) (*domain.LoginResponse, error) {
	return s.federatedLogin(ctx, s.facebook, accessToken, "FACEBOOK_LOGIN_ERROR")
}

func (s *authService) federatedLogin(ctx context.Context, provider oauth.Provider, providerToken, errCode string) (*domain.LoginResponse, error) {
	identity, err := provider.Verify(ctx, providerToken)
	if err != nil {
		return nil, domain.Internal(errCode, err)
	}

	email := identity.Email
	firstName, lastName := splitName(identity.Name)

	var user *domain.User
	err = s.store.WithTx(ctx, func(ctx context.Context, tx postgres.Store) error {
		user, err = tx.Users().FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if user != nil {
			return nil
		}

		// First federated login: provision an account with a random
		// password. The provider already verified the email.
		randomPassword, err := password.Random()
		if err != nil {
			return err
		}
		passwordHash, err := password.Hash(randomPassword)
		if err != nil {
			return err
		}
		referralCode, err := generateAlphanumericCode(8)
		if err != nil {
			return err
		}

		user, err = tx.Users().Create(ctx, &domain.User{
			ExternalID:    uuid.NewString(),
			FirstName:     firstName,
			LastName:      lastName,
			Email:         email,
			EmailVerified: true,
			PasswordHash:  passwordHash,
			Status:        domain.StatusActive,
			Role:          domain.RoleUser,
			ReferralCode:  &referralCode,
			Credits:       domain.SignupCredits,
		})
		return err
	})
	if err != nil {
		return nil, wrap(errCode, err)
	}

	if user.Status == domain.StatusBlocked {
		return nil, domain.ErrAccountBlocked
	}

	return s.loginResponse(user, "Login successful")
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*domain.LoginResponse, error) {
	claims, err := s.tokens.Verify(refreshToken, token.TypeRefresh)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.store.Users().FindByExternalID(ctx, claims.UserID())
	if err != nil {
		return nil, wrap("REFRESH_TOKEN_ERROR", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidToken
	}
	if user.Status == domain.StatusBlocked {
		return nil, domain.ErrAccountBlocked
	}

	return s.loginResponse(user, "Token refreshed")
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	req := domain.ForgotPasswordRequest{Email: email}
	req.Normalize()

	var (
		user *domain.User
		otp  *domain.OTP
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx postgres.Store) error {
		var err error
		user, err = tx.Users().FindByEmail(ctx, req.Email)
		if err != nil {
			return err
		}
		if user == nil {
			// Respond identically whether or not the account exists.
			return nil
		}

		otp, err = s.otp.Issue(ctx, tx.OTPs(), user.ID, domain.PurposePasswordReset, IssueOptions{
			ExpiresIn: s.cfg.OTP.PasswordResetTTL,
		})
		if errors.Is(err, domain.ErrRateLimited) {
			// Over the issuance limit the response stays a generic
			// success; revealing the limit would confirm the account.
			logger.InfoContext(ctx, "Password reset OTP suppressed by rate limit", "user_id", user.ExternalID)
			otp = nil
			return nil
		}
		return err
	})
	if err != nil {
		return wrap("FORGOT_PASSWORD_ERROR", err)
	}

	if user != nil && otp != nil {
		if err := s.mailer.SendOTP(user.Email, user.FirstName, domain.PurposePasswordReset, otp.Code, s.cfg.OTP.PasswordResetTTL); err != nil {
			logger.ErrorContext(ctx, "Failed to send password reset email", "error", err, "user_id", user.ExternalID)
		}
	}
	return nil
}

func (s *authService) VerifyResetOTP(ctx context.Context, email, code string) (string, error) {
	req := domain.VerifyOTPRequest{Email: email, Code: code}
	req.Normalize()

	var resetToken string
	err := s.store.WithTx(ctx, func(ctx context.Context, tx postgres.Store) error {
		user, err := tx.Users().FindByEmail(ctx, req.Email)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrInvalidOTP
		}

		consumed, err := s.otp.VerifyAndConsume(ctx, tx.OTPs(), user.ID, req.Code, domain.PurposePasswordReset)
		if err != nil {
			return err
		}
		if consumed == nil {
			return domain.ErrInvalidOTP
		}

		resetToken, err = s.tokens.IssuePurpose(user, token.TypeResetPassword, s.cfg.Auth.ResetTokenTTL)
		return err
	})
	if err != nil {
		return "", wrap("VERIFY_OTP_ERROR", err)
	}
	return resetToken, nil
}

func (s *authService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	req := domain.ResetPasswordRequest{ResetToken: resetToken, NewPassword: newPassword}
	if err := req.Validate(); err != nil {
		return err
	}

	claims, err := s.tokens.Verify(resetToken, token.TypeResetPassword)
	if err != nil {
		return domain.ErrInvalidToken
	}

	var user *domain.User
	err = s.store.WithTx(ctx, func(ctx context.Context, tx postgres.Store) error {
		var err error
		user, err = tx.Users().FindByExternalID(ctx, claims.UserID())
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}

		same, err := password.Verify(newPassword, user.PasswordHash)
		if err != nil {
			return err
		}
		if same {
			return domain.ErrSamePassword
		}

		newHash, err := password.Hash(newPassword)
		if err != nil {
			return err
		}
		if err := tx.Users().UpdatePassword(ctx, user.ID, newHash); err != nil {
			return err
		}

		// A successful reset retires any other outstanding reset codes.
		_, err = tx.OTPs().InvalidatePending(ctx, user.ID, domain.PurposePasswordReset)
		return err
	})
	if err != nil {
		return wrap("RESET_PASSWORD_ERROR", err)
	}

	s.publish(ctx, events.UserPasswordChanged, events.UserPasswordChangedEvent{
		UserID:    user.ExternalID,
		Flow:      "reset",
		ChangedAt: time.Now(),
	})
	return nil
}

func (s *authService) RequestEmailVerification(ctx context.Context, userID string) error {
	var (
		user *domain.User
		otp  *domain.OTP
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx postgres.Store) error {
		var err error
		user, err = tx.Users().FindByExternalID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}
		if user.EmailVerified {
			return domain.ErrEmailVerified
		}

		otp, err = s.otp.Issue(ctx, tx.OTPs(), user.ID, domain.PurposeEmailVerification, IssueOptions{
			ExpiresIn: s.cfg.OTP.EmailVerificationTTL,
		})
		return err
	})
	if err != nil {
		return wrap("REQUEST_VERIFICATION_ERROR", err)
	}

	if err := s.mailer.SendOTP(user.Email, user.FirstName, domain.PurposeEmailVerification, otp.Code, s.cfg.OTP.EmailVerificationTTL); err != nil {
		logger.ErrorContext(ctx, "Failed to send verification email", "error", err, "user_id", user.ExternalID)
	}
	return nil
}

func (s *authService) VerifyEmail(ctx context.Context, userID, code string) error {
	var user *domain.User
	err := s.store.WithTx(ctx, func(ctx context.Context, tx postgres.Store) error {
		var err error
		user, err = tx.Users().FindByExternalID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}
		if user.EmailVerified {
			// Idempotent: verifying twice is a no-op success.
			return nil
		}

		consumed, err := s.otp.VerifyAndConsume(ctx, tx.OTPs(), user.ID, code, domain.PurposeEmailVerification)
		if err != nil {
			return err
		}
		if consumed == nil {
			return domain.ErrInvalidCode
		}

		return tx.Users().MarkEmailVerified(ctx, user.ID)
	})
	if err != nil {
		return wrap("VERIFY_EMAIL_ERROR", err)
	}

	if !user.EmailVerified {
		s.publish(ctx, events.UserEmailVerified, events.UserEmailVerifiedEvent{
			UserID:     user.ExternalID,
			Email:      user.Email,
			VerifiedAt: time.Now(),
		})
	}
	return nil
}

func (s *authService) ChangePassword(ctx context.Context, userID string, req *domain.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	var user *domain.User
	err := s.store.WithTx(ctx, func(ctx context.Context, tx postgres.Store) error {
		var err error
		user, err = tx.Users().FindByExternalID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}

		valid, err := password.Verify(req.CurrentPassword, user.PasswordHash)
		if err != nil {
			return err
		}
		if !valid {
			return domain.ErrInvalidPassword
		}
		if req.NewPassword == req.CurrentPassword {
			return domain.ErrSamePassword
		}

		newHash, err := password.Hash(req.NewPassword)
		if err != nil {
			return err
		}
		return tx.Users().UpdatePassword(ctx, user.ID, newHash)
	})
	if err != nil {
		return wrap("CHANGE_PASSWORD_ERROR", err)
	}

	s.publish(ctx, events.UserPasswordChanged, events.UserPasswordChangedEvent{
		UserID:    user.ExternalID,
		Flow:      "change",
		ChangedAt: time.Now(),
	})
	return nil
}

func (s *authService) VerifyToken(ctx context.Context, accessToken string) (*domain.UserInfo, error) {
	claims, err := s.tokens.Verify(accessToken, token.TypeAccess)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.store.Users().FindByExternalID(ctx, claims.UserID())
	if err != nil {
		return nil, wrap("VERIFY_TOKEN_ERROR", err)
	}
	if user == nil {
		return nil, domain.ErrInvalidToken
	}
	return user.ToUserInfo(), nil
}

func (s *authService) CleanupExpiredOTPs(ctx context.Context) (int64, error) {
	return s.otp.CleanupExpired(ctx, s.store.OTPs())
}

func splitName(full string) (first, last string) {
	first = full
	for i := len(full) - 1; i >= 0; i-- {
		if full[i] == ' ' {
			return full[:i], full[i+1:]
		}
	}
	return first, ""
}
