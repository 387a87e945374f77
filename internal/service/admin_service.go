package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pixshare/pixshare-api/internal/domain"
	"github.com/pixshare/pixshare-api/internal/repo/postgres"
	"github.com/pixshare/pixshare-api/pkg/events"
	"github.com/pixshare/pixshare-api/pkg/logger"
)

type AdminService interface {
	ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	SetUserStatus(ctx context.Context, userID, status string) error
	AdjustCredits(ctx context.Context, userID string, delta int) (int, error)
	DeleteUser(ctx context.Context, userID string) error
	PurgeUser(ctx context.Context, userID string) error
	CleanupOTPs(ctx context.Context) (int64, error)
}

type adminService struct {
	store postgres.Store
	otp   *OTPService
	bus   events.Publisher
}

func NewAdminService(store postgres.Store, otp *OTPService, bus events.Publisher) AdminService {
	return &adminService{store: store, otp: otp, bus: bus}
}

func (s *adminService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	users, err := s.store.Users().List(ctx, limit, offset)
	if err != nil {
		return nil, wrap("ADMIN_LIST_USERS_ERROR", err)
	}
	return users, nil
}

func (s *adminService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.Users().FindByExternalID(ctx, userID)
	if err != nil {
		return nil, wrap("ADMIN_GET_USER_ERROR", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *adminService) SetUserStatus(ctx context.Context, userID, status string) error {
	if status != domain.StatusActive && status != domain.StatusInactive && status != domain.StatusBlocked {
		return domain.Validation("status must be active, inactive, or blocked")
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.store.Users().UpdateStatus(ctx, user.ID, status); err != nil {
		return wrap("ADMIN_SET_STATUS_ERROR", err)
	}

	if status == domain.StatusBlocked && s.bus != nil {
		if err := s.bus.Publish(ctx, events.UserBlocked, map[string]any{
			"user_id":    user.ExternalID,
			"blocked_at": time.Now(),
		}); err != nil {
			logger.WarnContext(ctx, "Failed to publish event", "subject", events.UserBlocked, "error", err)
		}
	}
	return nil
}

func (s *adminService) AdjustCredits(ctx context.Context, userID string, delta int) (int, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	credits, err := s.store.Users().AdjustCredits(ctx, user.ID, delta)
	if err != nil {
		return 0, wrap("ADMIN_ADJUST_CREDITS_ERROR", err)
	}
	return credits, nil
}

// DeleteUser tombstones the account; the row stays recoverable.
func (s *adminService) DeleteUser(ctx context.Context, userID string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.store.Users().SoftDelete(ctx, user.ID); err != nil {
		return wrap("ADMIN_DELETE_USER_ERROR", err)
	}

	if s.bus != nil {
		if err := s.bus.Publish(ctx, events.UserDeleted, map[string]any{
			"user_id":    user.ExternalID,
			"deleted_at": time.Now(),
		}); err != nil {
			logger.WarnContext(ctx, "Failed to publish event", "subject", events.UserDeleted, "error", err)
		}
	}
	return nil
}

// PurgeUser hard-deletes the row and, through cascade, the user's OTPs,
// contents, and engagement. Unlike DeleteUser it also reaches rows that
// were already soft-deleted.
func (s *adminService) PurgeUser(ctx context.Context, userID string) error {
	if err := s.store.Users().Purge(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		return wrap("ADMIN_PURGE_USER_ERROR", err)
	}
	return nil
}

func (s *adminService) CleanupOTPs(ctx context.Context) (int64, error) {
	count, err := s.otp.CleanupExpired(ctx, s.store.OTPs())
	if err != nil {
		return 0, wrap("ADMIN_OTP_CLEANUP_ERROR", err)
	}
	return count, nil
}
