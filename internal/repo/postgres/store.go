package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pixshare/pixshare-api/pkg/database"
)

// Store vends repositories bound to one database handle. WithTx returns a
// Store whose repositories all share a single transaction, so a workflow's
// user and OTP mutations commit or roll back together.
type Store interface {
	Users() UserRepository
	OTPs() OTPRepository
	Contents() ContentRepository
	Engagement() EngagementRepository
	WithTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}

type pgxStore struct {
	pool *pgxpool.Pool
	q    database.Querier
}

func NewStore(pool *pgxpool.Pool) Store {
	return &pgxStore{pool: pool, q: pool}
}

func (s *pgxStore) Users() UserRepository {
	return &userRepository{q: s.q}
}

func (s *pgxStore) OTPs() OTPRepository {
	return &otpRepository{q: s.q}
}

func (s *pgxStore) Contents() ContentRepository {
	return &contentRepository{q: s.q}
}

func (s *pgxStore) Engagement() EngagementRepository {
	return &engagementRepository{q: s.q}
}

func (s *pgxStore) WithTx(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	// Already transactional: reuse the same handle.
	if s.pool == nil {
		return fn(ctx, s)
	}
	return database.WithTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &pgxStore{q: tx})
	})
}
