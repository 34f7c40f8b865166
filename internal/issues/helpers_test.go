package issues

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"issuetrack/internal/shared/token"
	"issuetrack/internal/users"
	"issuetrack/pkg/cache"
	"issuetrack/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.SetDefault(logger.Discard())
}

type memoryRepo struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*users.User
	issues map[uuid.UUID]*Issue
	clock  time.Time
	lists  int
}

func newMemoryRepo(authors ...*users.User) *memoryRepo {
	m := &memoryRepo{
		users:  make(map[uuid.UUID]*users.User),
		issues: make(map[uuid.UUID]*Issue),
		clock:  time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	for _, u := range authors {
		m.users[u.ID] = u
	}
	return m
}

func (m *memoryRepo) withAuthor(i Issue) *Issue {
	i.User = m.users[i.UserID]
	return &i
}

func (m *memoryRepo) Create(_ context.Context, issue *Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Minute)
	issue.ID = uuid.New()
	issue.CreatedAt = m.clock
	issue.UpdatedAt = m.clock
	issue.User = m.users[issue.UserID]
	stored := *issue
	m.issues[issue.ID] = &stored
	return nil
}

func (m *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.issues[id]
	if !ok {
		return nil, ErrIssueNotFound
	}
	return m.withAuthor(*i), nil
}

func (m *memoryRepo) List(_ context.Context, f ListFilter) ([]Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	var out []Issue
	for _, i := range m.issues {
		if f.Status != "" && i.Status != f.Status {
			continue
		}
		if f.Priority != "" && i.Priority != f.Priority {
			continue
		}
		if f.AuthorRole != "" {
			author, ok := m.users[i.UserID]
			if !ok || author.Role != f.AuthorRole {
				continue
			}
		}
		out = append(out, *m.withAuthor(*i))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (m *memoryRepo) Update(_ context.Context, id uuid.UUID, updates map[string]interface{}) (*Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.issues[id]
	if !ok {
		return nil, ErrIssueNotFound
	}
	for k, v := range updates {
		switch k {
		case "title":
			i.Title = v.(string)
		case "description":
			i.Description = v.(string)
		case "priority":
			i.Priority = v.(Priority)
		case "status":
			i.Status = v.(Status)
		}
	}
	return m.withAuthor(*i), nil
}

func (m *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.issues[id]; !ok {
		return ErrIssueNotFound
	}
	delete(m.issues, id)
	return nil
}

func (m *memoryRepo) listCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists
}

func newUser(email string, role users.Role) *users.User {
	return &users.User{ID: uuid.New(), Name: email, Email: email, Role: role}
}

func claimsOf(u *users.User) *token.Claims {
	c := token.ClaimsFor(u)
	return &c
}

func newCache(t *testing.T) (cache.Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewService(client), mr
}
