package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"issuetrack/internal/activity"
	"issuetrack/internal/shared/config"
	"issuetrack/internal/shared/token"
	"issuetrack/internal/users"
	"issuetrack/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.SetDefault(logger.Discard())
}

type memoryRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*users.User
	err   error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[uuid.UUID]*users.User)}
}

func (m *memoryRepo) CreateUser(_ context.Context, u *users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = strings.ToLower(u.Email)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	clone := *u
	m.users[u.ID] = &clone
	return nil
}

func (m *memoryRepo) GetUserByEmail(_ context.Context, email string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memoryRepo) GetUserByID(_ context.Context, id string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	u, ok := m.users[uid]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *memoryRepo) UpdateUserPassword(_ context.Context, id string, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uuid.MustParse(id)]
	if !ok {
		return ErrUserNotFound
	}
	u.Password = hash
	return nil
}

func (m *memoryRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *memoryRepo) ListUsers(context.Context) ([]users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]users.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *memoryRepo) setRole(id uuid.UUID, role users.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].Role = role
}

func (m *memoryRepo) delete(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*activity.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e *activity.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) types() []activity.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]activity.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// blockingPublisher stands in for a broker that stops answering.
type blockingPublisher struct {
	release chan struct{}
}

func (b *blockingPublisher) Publish(ctx context.Context, _ *activity.Event) error {
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *blockingPublisher) Close() error { return nil }

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testJWT = config.JWTConfig{
	AccessSecret:     "test-access-secret",
	RefreshSecret:    "test-refresh-secret",
	AccessExpiresIn:  15 * time.Minute,
	RefreshExpiresIn: 7 * 24 * time.Hour,
	Issuer:           "issuetrack-test",
}

type fixture struct {
	repo      *memoryRepo
	codec     *token.Codec
	clock     *testClock
	publisher *recordingPublisher
	service   Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{now: time.Now().Truncate(time.Second)}
	codec, err := token.NewCodec(testJWT, token.WithClock(clock.Now))
	require.NoError(t, err)

	repo := newMemoryRepo()
	pub := &recordingPublisher{}
	return &fixture{
		repo:      repo,
		codec:     codec,
		clock:     clock,
		publisher: pub,
		service:   NewService(repo, codec, pub, logger.Discard()),
	}
}

// seedUser stores a user whose password hash is derived from password.
func (f *fixture) seedUser(t *testing.T, email, password string, role users.Role) *users.User {
	t.Helper()

	hash, err := HashPassword(password)
	require.NoError(t, err)

	u := &users.User{Name: "Test User", Email: email, Password: hash, Role: role}
	require.NoError(t, f.repo.CreateUser(context.Background(), u))
	return u
}
