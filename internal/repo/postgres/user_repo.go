package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pixshare/pixshare-api/internal/domain"
	"github.com/pixshare/pixshare-api/pkg/database"
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByReferralCode(ctx context.Context, code string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	MarkEmailVerified(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	AdjustCredits(ctx context.Context, id int64, delta int) (int, error)
	SoftDelete(ctx context.Context, id int64) error
	Purge(ctx context.Context, externalID string) error
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
}

type userRepository struct {
	q database.Querier
}

func NewUserRepository(q database.Querier) UserRepository {
	return &userRepository{q: q}
}

const userCols = `id, external_id, first_name, last_name, email, email_verified, password_hash,
	phone, status, role, referral_code, referred_by, credits, deleted_at, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.ExternalID, &u.FirstName, &u.LastName, &u.Email, &u.EmailVerified, &u.PasswordHash,
		&u.Phone, &u.Status, &u.Role, &u.ReferralCode, &u.ReferredBy, &u.Credits, &u.DeletedAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	const q = `
		INSERT INTO users (external_id, first_name, last_name, email, email_verified, password_hash,
			phone, status, role, referral_code, referred_by, credits)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	created, err := scanUser(r.q.QueryRow(ctx, q,
		u.ExternalID, u.FirstName, u.LastName, u.Email, u.EmailVerified, u.PasswordHash,
		u.Phone, u.Status, u.Role, u.ReferralCode, u.ReferredBy, u.Credits,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrEmailExists
		}
		return nil, err
	}
	return created, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE lower(email) = lower($1) AND deleted_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.q.QueryRow(ctx, q, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE external_id = $1 AND deleted_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.q.QueryRow(ctx, q, externalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.q.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) FindByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE referral_code = $1 AND deleted_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.q.QueryRow(ctx, q, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.q.Exec(ctx, q, id, passwordHash)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, id int64) error {
	const q = `UPDATE users SET email_verified = true, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.q.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	const q = `UPDATE users SET status = $2, updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.q.Exec(ctx, q, id, status)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AdjustCredits applies delta atomically. The credits >= 0 check constraint
// refuses a debit below zero; that surfaces as a 23514 error here.
func (r *userRepository) AdjustCredits(ctx context.Context, id int64, delta int) (int, error) {
	const q = `UPDATE users SET credits = credits + $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING credits`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var credits int
	err := r.q.QueryRow(ctx, q, id, delta).Scan(&credits)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return 0, domain.Validation("credit balance cannot go negative")
		}
		return 0, err
	}
	return credits, nil
}

func (r *userRepository) SoftDelete(ctx context.Context, id int64) error {
	const q = `UPDATE users SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.q.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Purge hard-deletes the row, soft-deleted or not. Dependent rows go
// with it through ON DELETE CASCADE.
func (r *userRepository) Purge(ctx context.Context, externalID string) error {
	const q = `DELETE FROM users WHERE external_id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.q.Exec(ctx, q, externalID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `SELECT ` + userCols + ` FROM users WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.q.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
