package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pixshare/pixshare-api/internal/domain"
	"github.com/pixshare/pixshare-api/internal/platform/storage"
	"github.com/pixshare/pixshare-api/internal/repo/postgres"
	"github.com/pixshare/pixshare-api/pkg/events"
	"github.com/pixshare/pixshare-api/pkg/logger"
)

type ContentService interface {
	Create(ctx context.Context, ownerID string, req *domain.CreateContentRequest) (*domain.CreateContentResponse, error)
	Get(ctx context.Context, contentID string) (*domain.Content, error)
	List(ctx context.Context, limit, offset int) ([]domain.Content, error)
	ListMine(ctx context.Context, ownerID string, limit, offset int) ([]domain.Content, error)
	Delete(ctx context.Context, ownerID, contentID string, isAdmin bool) error
	DownloadURL(ctx context.Context, contentID string) (string, error)
}

type contentService struct {
	store     postgres.Store
	presigner *storage.Presigner
	bus       events.Publisher
}

func NewContentService(store postgres.Store, presigner *storage.Presigner, bus events.Publisher) ContentService {
	return &contentService{store: store, presigner: presigner, bus: bus}
}

func (s *contentService) Create(ctx context.Context, ownerID string, req *domain.CreateContentRequest) (*domain.CreateContentResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	owner, err := s.store.Users().FindByExternalID(ctx, ownerID)
	if err != nil {
		return nil, wrap("CONTENT_CREATE_ERROR", err)
	}
	if owner == nil {
		return nil, domain.ErrUserNotFound
	}

	key := storage.RandomKey(owner.ExternalID)
	created, err := s.store.Contents().Create(ctx, &domain.Content{
		ExternalID:  uuid.NewString(),
		OwnerID:     owner.ID,
		Kind:        req.Kind,
		Title:       req.Title,
		Description: req.Description,
		StorageKey:  key,
		MimeType:    req.MimeType,
	})
	if err != nil {
		return nil, wrap("CONTENT_CREATE_ERROR", err)
	}

	resp := &domain.CreateContentResponse{Content: created}
	if req.Kind == domain.ContentKindUpload && s.presigner != nil && s.presigner.Enabled {
		uploadURL, err := s.presigner.PresignPut(ctx, key, req.MimeType)
		if err != nil {
			return nil, wrap("CONTENT_CREATE_ERROR", err)
		}
		resp.UploadURL = uploadURL
	}

	if s.bus != nil {
		if err := s.bus.Publish(ctx, events.ContentCreated, events.ContentCreatedEvent{
			ContentID: created.ExternalID,
			OwnerID:   owner.ExternalID,
			Kind:      created.Kind,
			CreatedAt: created.CreatedAt,
		}); err != nil {
			logger.WarnContext(ctx, "Failed to publish event", "subject", events.ContentCreated, "error", err)
		}
	}

	return resp, nil
}

func (s *contentService) Get(ctx context.Context, contentID string) (*domain.Content, error) {
	content, err := s.store.Contents().FindByExternalID(ctx, contentID)
	if err != nil {
		return nil, wrap("CONTENT_GET_ERROR", err)
	}
	if content == nil {
		return nil, domain.ErrContentNotFound
	}
	return content, nil
}

func (s *contentService) List(ctx context.Context, limit, offset int) ([]domain.Content, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	contents, err := s.store.Contents().List(ctx, limit, offset)
	if err != nil {
		return nil, wrap("CONTENT_LIST_ERROR", err)
	}
	return contents, nil
}

func (s *contentService) ListMine(ctx context.Context, ownerID string, limit, offset int) ([]domain.Content, error) {
	owner, err := s.store.Users().FindByExternalID(ctx, ownerID)
	if err != nil {
		return nil, wrap("CONTENT_LIST_ERROR", err)
	}
	if owner == nil {
		return nil, domain.ErrUserNotFound
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	contents, err := s.store.Contents().ListByOwner(ctx, owner.ID, limit, offset)
	if err != nil {
		return nil, wrap("CONTENT_LIST_ERROR", err)
	}
	return contents, nil
}

func (s *contentService) Delete(ctx context.Context, ownerID, contentID string, isAdmin bool) error {
	content, err := s.store.Contents().FindByExternalID(ctx, contentID)
	if err != nil {
		return wrap("CONTENT_DELETE_ERROR", err)
	}
	if content == nil {
		return domain.ErrContentNotFound
	}

	if !isAdmin {
		owner, err := s.store.Users().FindByExternalID(ctx, ownerID)
		if err != nil {
			return wrap("CONTENT_DELETE_ERROR", err)
		}
		if owner == nil || owner.ID != content.OwnerID {
			return domain.ErrForbidden
		}
	}

	if err := s.store.Contents().SoftDelete(ctx, content.ID); err != nil {
		return wrap("CONTENT_DELETE_ERROR", err)
	}

	if s.bus != nil {
		if err := s.bus.Publish(ctx, events.ContentDeleted, map[string]any{
			"content_id": content.ExternalID,
			"deleted_at": time.Now(),
		}); err != nil {
			logger.WarnContext(ctx, "Failed to publish event", "subject", events.ContentDeleted, "error", err)
		}
	}
	return nil
}

func (s *contentService) DownloadURL(ctx context.Context, contentID string) (string, error) {
	content, err := s.store.Contents().FindByExternalID(ctx, contentID)
	if err != nil {
		return "", wrap("CONTENT_GET_ERROR", err)
	}
	if content == nil {
		return "", domain.ErrContentNotFound
	}
	if s.presigner == nil || !s.presigner.Enabled {
		return "", domain.Internal("CONTENT_GET_ERROR", errors.New("storage presigner disabled"))
	}
	url, err := s.presigner.PresignGet(ctx, content.StorageKey)
	if err != nil {
		return "", wrap("CONTENT_GET_ERROR", err)
	}
	return url, nil
}
