package postgres

import (
	"context"
	"time"

	"github.com/pixshare/pixshare-api/internal/domain"
	"github.com/pixshare/pixshare-api/pkg/database"
)

type EngagementRepository interface {
	// Like is idempotent: liking twice leaves one row and returns false
	// the second time.
	Like(ctx context.Context, contentID, userID int64) (bool, error)
	Unlike(ctx context.Context, contentID, userID int64) (bool, error)
	CreateComment(ctx context.Context, c *domain.Comment) (*domain.Comment, error)
	ListComments(ctx context.Context, contentID int64, limit, offset int) ([]domain.Comment, error)
	// RecordView counts at most one view per (content, user, day).
	RecordView(ctx context.Context, contentID, userID int64) (bool, error)
}

type engagementRepository struct {
	q database.Querier
}

func NewEngagementRepository(q database.Querier) EngagementRepository {
	return &engagementRepository{q: q}
}

func (r *engagementRepository) Like(ctx context.Context, contentID, userID int64) (bool, error) {
	const q = `INSERT INTO likes (content_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.q.Exec(ctx, q, contentID, userID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *engagementRepository) Unlike(ctx context.Context, contentID, userID int64) (bool, error) {
	const q = `DELETE FROM likes WHERE content_id = $1 AND user_id = $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.q.Exec(ctx, q, contentID, userID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

func (r *engagementRepository) CreateComment(ctx context.Context, c *domain.Comment) (*domain.Comment, error) {
	const q = `
		INSERT INTO comments (external_id, content_id, user_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	created := *c
	err := r.q.QueryRow(ctx, q, c.ExternalID, c.ContentID, c.UserID, c.Body).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *engagementRepository) ListComments(ctx context.Context, contentID int64, limit, offset int) ([]domain.Comment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
		SELECT cm.id, cm.external_id, cm.content_id, cm.user_id, u.external_id, cm.body, cm.created_at
		FROM comments cm
		JOIN users u ON u.id = cm.user_id
		WHERE cm.content_id = $1
		ORDER BY cm.created_at DESC
		LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.q.Query(ctx, q, contentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.ExternalID, &c.ContentID, &c.UserID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *engagementRepository) RecordView(ctx context.Context, contentID, userID int64) (bool, error) {
	const q = `INSERT INTO views (content_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.q.Exec(ctx, q, contentID, userID)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
