package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pixshare/pixshare-api/internal/domain"
	"github.com/pixshare/pixshare-api/pkg/database"
)

type OTPRepository interface {
	// InvalidatePending marks every unused, unexpired OTP for
	// (userID, purpose) as used and returns the count affected.
	InvalidatePending(ctx context.Context, userID int64, purpose string) (int64, error)
	Create(ctx context.Context, otp *domain.OTP) (*domain.OTP, error)
	CountIssuedSince(ctx context.Context, userID int64, purpose string, since time.Time) (int, error)
	// FindPending is a pure read: it never mutates state.
	FindPending(ctx context.Context, userID int64, code, purpose string) (*domain.OTP, error)
	// Consume flips used=false to used=true in one conditional update, so
	// only one of two racing consumers can succeed. Returns pgx.ErrNoRows
	// mapped to nil when no pending match exists.
	Consume(ctx context.Context, userID int64, code, purpose string) (*domain.OTP, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type otpRepository struct {
	q database.Querier
}

func NewOTPRepository(q database.Querier) OTPRepository {
	return &otpRepository{q: q}
}

const otpCols = `id, user_id, code, purpose, expires_at, used, metadata, created_at, updated_at`

func scanOTP(row pgx.Row) (*domain.OTP, error) {
	var (
		o    domain.OTP
		meta []byte
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Code, &o.Purpose, &o.ExpiresAt, &o.Used, &meta, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &o.Metadata); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

func (r *otpRepository) InvalidatePending(ctx context.Context, userID int64, purpose string) (int64, error) {
	const q = `
		UPDATE otps SET used = true, updated_at = now()
		WHERE user_id = $1 AND purpose = $2 AND used = false AND expires_at > now()`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.q.Exec(ctx, q, userID, purpose)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func (r *otpRepository) Create(ctx context.Context, otp *domain.OTP) (*domain.OTP, error) {
	const q = `
		INSERT INTO otps (user_id, code, purpose, expires_at, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + otpCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var meta []byte
	if otp.Metadata != nil {
		b, err := json.Marshal(otp.Metadata)
		if err != nil {
			return nil, err
		}
		meta = b
	}

	return scanOTP(r.q.QueryRow(ctx, q, otp.UserID, otp.Code, otp.Purpose, otp.ExpiresAt, meta))
}

func (r *otpRepository) CountIssuedSince(ctx context.Context, userID int64, purpose string, since time.Time) (int, error) {
	const q = `SELECT count(*) FROM otps WHERE user_id = $1 AND purpose = $2 AND created_at >= $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var count int
	err := r.q.QueryRow(ctx, q, userID, purpose, since).Scan(&count)
	return count, err
}

func (r *otpRepository) FindPending(ctx context.Context, userID int64, code, purpose string) (*domain.OTP, error) {
	const q = `SELECT ` + otpCols + ` FROM otps
		WHERE user_id = $1 AND code = $2 AND purpose = $3 AND used = false AND expires_at > now()
		ORDER BY id DESC
		LIMIT 1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	o, err := scanOTP(r.q.QueryRow(ctx, q, userID, code, purpose))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

func (r *otpRepository) Consume(ctx context.Context, userID int64, code, purpose string) (*domain.OTP, error) {
	const q = `
		UPDATE otps SET used = true, updated_at = now()
		WHERE user_id = $1 AND code = $2 AND purpose = $3 AND used = false AND expires_at > now()
		RETURNING ` + otpCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	o, err := scanOTP(r.q.QueryRow(ctx, q, userID, code, purpose))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

func (r *otpRepository) CleanupExpired(ctx context.Context) (int64, error) {
	const q = `UPDATE otps SET used = true, updated_at = now() WHERE used = false AND expires_at <= now()`

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := r.q.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
