package domain

import (
	"strings"
	"time"
)

type Content struct {
	ID          int64      `json:"-"`
	ExternalID  string     `json:"id"`
	OwnerID     int64      `json:"-"`
	Kind        string     `json:"kind"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	StorageKey  string     `json:"-"`
	MimeType    string     `json:"mime_type"`
	LikeCount   int64      `json:"like_count"`
	ViewCount   int64      `json:"view_count"`
	DeletedAt   *time.Time `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

const (
	ContentKindUpload    = "upload"
	ContentKindGenerated = "generated"
)

type Comment struct {
	ID         int64     `json:"-"`
	ExternalID string    `json:"id"`
	ContentID  int64     `json:"-"`
	UserID     int64     `json:"-"`
	AuthorID   string    `json:"author_id"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

type CreateContentRequest struct {
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType"`
}

type CreateContentResponse struct {
	Content   *Content `json:"content"`
	UploadURL string   `json:"uploadUrl,omitempty"`
}

type CreateCommentRequest struct {
	Body string `json:"body"`
}

func (r *CreateContentRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	if r.Kind == "" {
		r.Kind = ContentKindUpload
	}
}

func (r *CreateContentRequest) Validate() error {
	if r.Title == "" {
		return Validation("title is required")
	}
	if r.Kind != ContentKindUpload && r.Kind != ContentKindGenerated {
		return Validation("kind must be upload or generated")
	}
	if r.Kind == ContentKindUpload && r.MimeType == "" {
		return Validation("mimeType is required for uploads")
	}
	return nil
}

func (r *CreateCommentRequest) Validate() error {
	body := strings.TrimSpace(r.Body)
	if body == "" {
		return Validation("comment body is required")
	}
	if len(body) > 2000 {
		return Validation("comment body must be at most 2000 characters")
	}
	return nil
}
