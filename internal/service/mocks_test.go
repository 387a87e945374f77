package service_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pixshare/pixshare-api/internal/domain"
	"github.com/pixshare/pixshare-api/internal/platform/oauth"
	"github.com/pixshare/pixshare-api/internal/repo/postgres"
)

// ---------- Mocks ----------

type mockStore struct {
	users      *mockUserRepo
	otps       *mockOTPRepo
	contents   *mockContentRepo
	engagement *mockEngagementRepo
}

func newMockStore() *mockStore {
	return &mockStore{
		users:      newMockUserRepo(),
		otps:       newMockOTPRepo(),
		contents:   newMockContentRepo(),
		engagement: newMockEngagementRepo(),
	}
}

func (m *mockStore) Users() postgres.UserRepository            { return m.users }
func (m *mockStore) OTPs() postgres.OTPRepository              { return m.otps }
func (m *mockStore) Contents() postgres.ContentRepository      { return m.contents }
func (m *mockStore) Engagement() postgres.EngagementRepository { return m.engagement }

func (m *mockStore) WithTx(ctx context.Context, fn func(ctx context.Context, s postgres.Store) error) error {
	return fn(ctx, m)
}

type mockUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{nextID: 1, users: make(map[int64]*domain.User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.DeletedAt == nil && strings.EqualFold(existing.Email, u.Email) {
			return nil, domain.ErrEmailExists
		}
	}
	created := *u
	created.ID = m.nextID
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.nextID++
	m.users[created.ID] = &created
	out := created
	return &out, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.DeletedAt == nil && strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) FindByExternalID(_ context.Context, externalID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.DeletedAt == nil && u.ExternalID == externalID {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok && u.DeletedAt == nil {
		out := *u
		return &out, nil
	}
	return nil, nil
}

func (m *mockUserRepo) FindByReferralCode(_ context.Context, code string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.DeletedAt == nil && u.ReferralCode != nil && *u.ReferralCode == code {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockUserRepo) MarkEmailVerified(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.EmailVerified = true
	}
	return nil
}

func (m *mockUserRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.Status = status
	}
	return nil
}

func (m *mockUserRepo) AdjustCredits(_ context.Context, id int64, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return 0, nil
	}
	if u.Credits+delta < 0 {
		return 0, domain.Validation("credits cannot go negative")
	}
	u.Credits += delta
	return u.Credits, nil
}

func (m *mockUserRepo) SoftDelete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		now := time.Now()
		u.DeletedAt = &now
	}
	return nil
}

func (m *mockUserRepo) Purge(_ context.Context, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.ExternalID == externalID {
			delete(m.users, id)
			return nil
		}
	}
	return nil
}

func (m *mockUserRepo) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		if u.DeletedAt == nil {
			out = append(out, *u)
		}
	}
	return out, nil
}

// mockOTPRepo mirrors the production semantics closely enough to exercise
// reissue invalidation, single consumption, and the issuance window.
type mockOTPRepo struct {
	mu     sync.Mutex
	nextID int64
	otps   []*domain.OTP
}

func newMockOTPRepo() *mockOTPRepo {
	return &mockOTPRepo{nextID: 1}
}

func (m *mockOTPRepo) InvalidatePending(_ context.Context, userID int64, purpose string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for _, o := range m.otps {
		if o.UserID == userID && o.Purpose == purpose && o.Pending(now) {
			o.Used = true
			n++
		}
	}
	return n, nil
}

func (m *mockOTPRepo) Create(_ context.Context, otp *domain.OTP) (*domain.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created := *otp
	created.ID = m.nextID
	created.CreatedAt = time.Now()
	m.nextID++
	m.otps = append(m.otps, &created)
	out := created
	return &out, nil
}

func (m *mockOTPRepo) CountIssuedSince(_ context.Context, userID int64, purpose string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, o := range m.otps {
		if o.UserID == userID && o.Purpose == purpose && !o.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *mockOTPRepo) FindPending(_ context.Context, userID int64, code, purpose string) (*domain.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, o := range m.otps {
		if o.UserID == userID && o.Code == code && o.Purpose == purpose && o.Pending(now) {
			out := *o
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockOTPRepo) Consume(_ context.Context, userID int64, code, purpose string) (*domain.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, o := range m.otps {
		if o.UserID == userID && o.Code == code && o.Purpose == purpose && o.Pending(now) {
			o.Used = true
			out := *o
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockOTPRepo) CleanupExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for _, o := range m.otps {
		if !o.Used && !now.Before(o.ExpiresAt) {
			o.Used = true
			n++
		}
	}
	return n, nil
}

// pending returns the single pending code for (userID, purpose), if any.
func (m *mockOTPRepo) pending(userID int64, purpose string) *domain.OTP {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, o := range m.otps {
		if o.UserID == userID && o.Purpose == purpose && o.Pending(now) {
			out := *o
			return &out
		}
	}
	return nil
}

type mockContentRepo struct {
	mu       sync.Mutex
	nextID   int64
	contents map[int64]*domain.Content
}

func newMockContentRepo() *mockContentRepo {
	return &mockContentRepo{nextID: 1, contents: make(map[int64]*domain.Content)}
}

func (m *mockContentRepo) Create(_ context.Context, c *domain.Content) (*domain.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created := *c
	created.ID = m.nextID
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.nextID++
	m.contents[created.ID] = &created
	out := created
	return &out, nil
}

func (m *mockContentRepo) FindByExternalID(_ context.Context, externalID string) (*domain.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contents {
		if c.DeletedAt == nil && c.ExternalID == externalID {
			out := *c
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockContentRepo) ListByOwner(_ context.Context, ownerID int64, limit, offset int) ([]domain.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Content
	for _, c := range m.contents {
		if c.DeletedAt == nil && c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockContentRepo) List(_ context.Context, limit, offset int) ([]domain.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Content
	for _, c := range m.contents {
		if c.DeletedAt == nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockContentRepo) SoftDelete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.contents[id]; ok {
		now := time.Now()
		c.DeletedAt = &now
	}
	return nil
}

type likeKey struct{ contentID, userID int64 }

type mockEngagementRepo struct {
	mu       sync.Mutex
	nextID   int64
	likes    map[likeKey]bool
	views    map[likeKey]bool
	comments []*domain.Comment
}

func newMockEngagementRepo() *mockEngagementRepo {
	return &mockEngagementRepo{
		nextID: 1,
		likes:  make(map[likeKey]bool),
		views:  make(map[likeKey]bool),
	}
}

func (m *mockEngagementRepo) Like(_ context.Context, contentID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := likeKey{contentID, userID}
	if m.likes[k] {
		return false, nil
	}
	m.likes[k] = true
	return true, nil
}

func (m *mockEngagementRepo) Unlike(_ context.Context, contentID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := likeKey{contentID, userID}
	if !m.likes[k] {
		return false, nil
	}
	delete(m.likes, k)
	return true, nil
}

func (m *mockEngagementRepo) CreateComment(_ context.Context, c *domain.Comment) (*domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created := *c
	created.ID = m.nextID
	created.CreatedAt = time.Now()
	m.nextID++
	m.comments = append(m.comments, &created)
	out := created
	return &out, nil
}

func (m *mockEngagementRepo) ListComments(_ context.Context, contentID int64, limit, offset int) ([]domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Comment
	for _, c := range m.comments {
		if c.ContentID == contentID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockEngagementRepo) RecordView(_ context.Context, contentID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := likeKey{contentID, userID}
	if m.views[k] {
		return false, nil
	}
	m.views[k] = true
	return true, nil
}

type mockMailer struct {
	mu       sync.Mutex
	lastTo   string
	lastCode string
	sent     int
	sendErr  error
}

func (m *mockMailer) Send(toEmail, toName, subject, text, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTo = toEmail
	m.sent++
	return m.sendErr
}

func (m *mockMailer) SendOTP(toEmail, toName, purpose, code string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTo = toEmail
	m.lastCode = code
	m.sent++
	return m.sendErr
}

type mockBus struct {
	mu       sync.Mutex
	subjects []string
}

func (m *mockBus) Publish(_ context.Context, subject string, _ interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	return nil
}

func (m *mockBus) Close() error { return nil }

type mockProvider struct {
	identity *oauth.Identity
	err      error
}

func (m *mockProvider) Verify(context.Context, string) (*oauth.Identity, error) {
	return m.identity, m.err
}
