package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/pixshare/pixshare-api/internal/domain"
	"github.com/pixshare/pixshare-api/internal/repo/postgres"
	"github.com/pixshare/pixshare-api/pkg/events"
	"github.com/pixshare/pixshare-api/pkg/logger"
)

type EngagementService interface {
	Like(ctx context.Context, userID, contentID string) error
	Unlike(ctx context.Context, userID, contentID string) error
	Comment(ctx context.Context, userID, contentID string, req *domain.CreateCommentRequest) (*domain.Comment, error)
	ListComments(ctx context.Context, contentID string, limit, offset int) ([]domain.Comment, error)
	RecordView(ctx context.Context, userID, contentID string) error
}

type engagementService struct {
	store postgres.Store
	redis *redis.Client
	bus   events.Publisher
}

func NewEngagementService(store postgres.Store, redisClient *redis.Client, bus events.Publisher) EngagementService {
	return &engagementService{store: store, redis: redisClient, bus: bus}
}

func (s *engagementService) resolve(ctx context.Context, userID, contentID string) (*domain.User, *domain.Content, error) {
	user, err := s.store.Users().FindByExternalID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, domain.ErrUserNotFound
	}
	content, err := s.store.Contents().FindByExternalID(ctx, contentID)
	if err != nil {
		return nil, nil, err
	}
	if content == nil {
		return nil, nil, domain.ErrContentNotFound
	}
	return user, content, nil
}

func (s *engagementService) publish(ctx context.Context, subject string, payload any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, subject, payload); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}

func (s *engagementService) Like(ctx context.Context, userID, contentID string) error {
	user, content, err := s.resolve(ctx, userID, contentID)
	if err != nil {
		return wrap("LIKE_ERROR", err)
	}

	added, err := s.store.Engagement().Like(ctx, content.ID, user.ID)
	if err != nil {
		return wrap("LIKE_ERROR", err)
	}
	if added {
		s.publish(ctx, events.ContentLiked, events.ContentLikedEvent{
			ContentID: content.ExternalID,
			UserID:    user.ExternalID,
			LikedAt:   time.Now(),
		})
	}
	return nil
}

func (s *engagementService) Unlike(ctx context.Context, userID, contentID string) error {
	user, content, err := s.resolve(ctx, userID, contentID)
	if err != nil {
		return wrap("UNLIKE_ERROR", err)
	}

	removed, err := s.store.Engagement().Unlike(ctx, content.ID, user.ID)
	if err != nil {
		return wrap("UNLIKE_ERROR", err)
	}
	if removed {
		s.publish(ctx, events.ContentUnliked, map[string]any{
			"content_id": content.ExternalID,
			"user_id":    user.ExternalID,
		})
	}
	return nil
}

func (s *engagementService) Comment(ctx context.Context, userID, contentID string, req *domain.CreateCommentRequest) (*domain.Comment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, content, err := s.resolve(ctx, userID, contentID)
	if err != nil {
		return nil, wrap("COMMENT_ERROR", err)
	}

	comment, err := s.store.Engagement().CreateComment(ctx, &domain.Comment{
		ExternalID: uuid.NewString(),
		ContentID:  content.ID,
		UserID:     user.ID,
		AuthorID:   user.ExternalID,
		Body:       req.Body,
	})
	if err != nil {
		return nil, wrap("COMMENT_ERROR", err)
	}

	s.publish(ctx, events.CommentCreated, events.CommentCreatedEvent{
		CommentID: comment.ExternalID,
		ContentID: content.ExternalID,
		UserID:    user.ExternalID,
		CreatedAt: comment.CreatedAt,
	})
	return comment, nil
}

func (s *engagementService) ListComments(ctx context.Context, contentID string, limit, offset int) ([]domain.Comment, error) {
	content, err := s.store.Contents().FindByExternalID(ctx, contentID)
	if err != nil {
		return nil, wrap("COMMENT_LIST_ERROR", err)
	}
	if content == nil {
		return nil, domain.ErrContentNotFound
	}

	comments, err := s.store.Engagement().ListComments(ctx, content.ID, limit, offset)
	if err != nil {
		return nil, wrap("COMMENT_LIST_ERROR", err)
	}
	return comments, nil
}

// RecordView counts a view once per user per content per day. Redis takes
// the first look so repeat views skip the database entirely; on redis
// failure we fall through to the database's own de-dup and fail open.
func (s *engagementService) RecordView(ctx context.Context, userID, contentID string) error {
	user, content, err := s.resolve(ctx, userID, contentID)
	if err != nil {
		return wrap("VIEW_ERROR", err)
	}

	if s.redis != nil {
		key := fmt.Sprintf("view:%d:%d:%s", content.ID, user.ID, time.Now().Format("2006-01-02"))
		set, err := s.redis.SetNX(ctx, key, 1, 24*time.Hour).Result()
		if err != nil {
			logger.WarnContext(ctx, "Redis view de-dup failed", "error", err)
		} else if !set {
			return nil
		}
	}

	recorded, err := s.store.Engagement().RecordView(ctx, content.ID, user.ID)
	if err != nil {
		return wrap("VIEW_ERROR", err)
	}
	if recorded {
		s.publish(ctx, events.ContentViewed, events.ContentViewedEvent{
			ContentID: content.ExternalID,
			UserID:    user.ExternalID,
			ViewedAt:  time.Now(),
		})
	}
	return nil
}
