package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pixshare/pixshare-api/internal/domain"
	"github.com/pixshare/pixshare-api/pkg/database"
)

type ContentRepository interface {
	Create(ctx context.Context, c *domain.Content) (*domain.Content, error)
	FindByExternalID(ctx context.Context, externalID string) (*domain.Content, error)
	ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]domain.Content, error)
	List(ctx context.Context, limit, offset int) ([]domain.Content, error)
	SoftDelete(ctx context.Context, id int64) error
}

type contentRepository struct {
	q database.Querier
}

func NewContentRepository(q database.Querier) ContentRepository {
	return &contentRepository{q: q}
}

// Like and view counts ride along on every read as correlated subqueries;
// volumes here do not justify denormalized counters.
const contentCols = `c.id, c.external_id, c.owner_id, c.kind, c.title, c.description, c.storage_key,
	c.mime_type,
	(SELECT count(*) FROM likes l WHERE l.content_id = c.id),
	(SELECT count(*) FROM views v WHERE v.content_id = c.id),
	c.deleted_at, c.created_at, c.updated_at`

func scanContent(row pgx.Row) (*domain.Content, error) {
	var c domain.Content
	err := row.Scan(
		&c.ID, &c.ExternalID, &c.OwnerID, &c.Kind, &c.Title, &c.Description, &c.StorageKey,
		&c.MimeType, &c.LikeCount, &c.ViewCount, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *contentRepository) Create(ctx context.Context, c *domain.Content) (*domain.Content, error) {
	const q = `
		INSERT INTO contents (external_id, owner_id, kind, title, description, storage_key, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, external_id, owner_id, kind, title, description, storage_key, mime_type,
			0::bigint, 0::bigint, deleted_at, created_at, updated_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanContent(r.q.QueryRow(ctx, q,
		c.ExternalID, c.OwnerID, c.Kind, c.Title, c.Description, c.StorageKey, c.MimeType,
	))
}

func (r *contentRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.Content, error) {
	const q = `SELECT ` + contentCols + ` FROM contents c
		WHERE c.external_id = $1 AND c.deleted_at IS NULL`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	c, err := scanContent(r.q.QueryRow(ctx, q, externalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *contentRepository) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]domain.Content, error) {
	const q = `SELECT ` + contentCols + ` FROM contents c
		WHERE c.owner_id = $1 AND c.deleted_at IS NULL
		ORDER BY c.created_at DESC
		LIMIT $2 OFFSET $3`

	return r.list(ctx, q, ownerID, limit, offset)
}

func (r *contentRepository) List(ctx context.Context, limit, offset int) ([]domain.Content, error) {
	const q = `SELECT ` + contentCols + ` FROM contents c
		WHERE c.deleted_at IS NULL
		ORDER BY c.created_at DESC
		LIMIT $1 OFFSET $2`

	return r.list(ctx, q, limit, offset)
}

func (r *contentRepository) list(ctx context.Context, q string, args ...any) ([]domain.Content, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contents []domain.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		contents = append(contents, *c)
	}
	return contents, rows.Err()
}

func (r *contentRepository) SoftDelete(ctx context.Context, id int64) error {
	const q = `UPDATE contents SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`

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
