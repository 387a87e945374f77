package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pixshare/pixshare-api/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	// User lifecycle events
	UserRegistered      = "user.registered"
	UserEmailVerified   = "user.email_verified"
	UserPasswordChanged = "user.password_changed"
	UserBlocked         = "user.blocked"
	UserDeleted         = "user.deleted"

	// Content events
	ContentCreated = "content.created"
	ContentDeleted = "content.deleted"
	ContentLiked   = "content.liked"
	ContentUnliked = "content.unliked"
	ContentViewed  = "content.viewed"

	// Comment events
	CommentCreated = "comment.created"

	// Notification events
	NotifySend = "notify.send"
)

// Event payloads
type UserRegisteredEvent struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	ReferralCode string    `json:"referral_code"`
	ReferredBy   string    `json:"referred_by,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

type UserEmailVerifiedEvent struct {
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	VerifiedAt time.Time `json:"verified_at"`
}

type UserPasswordChangedEvent struct {
	UserID    string    `json:"user_id"`
	Flow      string    `json:"flow"` // "reset" or "change"
	ChangedAt time.Time `json:"changed_at"`
}

type ContentCreatedEvent struct {
	ContentID string    `json:"content_id"`
	OwnerID   string    `json:"owner_id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

type ContentLikedEvent struct {
	ContentID string    `json:"content_id"`
	UserID    string    `json:"user_id"`
	LikedAt   time.Time `json:"liked_at"`
}

type ContentViewedEvent struct {
	ContentID string    `json:"content_id"`
	UserID    string    `json:"user_id"`
	ViewedAt  time.Time `json:"viewed_at"`
}

type CommentCreatedEvent struct {
	CommentID string    `json:"comment_id"`
	ContentID string    `json:"content_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationEvent struct {
	Type      string                 `json:"type"`
	Recipient string                 `json:"recipient"`
	Subject   string                 `json:"subject"`
	Data      map[string]interface{} `json:"data"`
}
