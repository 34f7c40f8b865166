package issues

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"issuetrack/internal/activity"
	"issuetrack/internal/shared/constants"
	"issuetrack/internal/shared/token"
	"issuetrack/internal/users"
	"issuetrack/pkg/cache"
	"issuetrack/pkg/logger"
)

var (
	ErrIssueNotFound = errors.New("issue not found")
	ErrNotIssueOwner = errors.New("forbidden: not your issue")
	ErrInvalidFilter = errors.New("invalid filter")
)

type Service interface {
	CreateIssue(ctx context.Context, actor *token.Claims, req CreateIssueRequest) (*IssueResponse, error)
	GetIssue(ctx context.Context, id uuid.UUID) (*IssueResponse, error)
	ListIssues(ctx context.Context, query ListIssuesQuery) ([]IssueResponse, error)
	UpdateIssue(ctx context.Context, actor *token.Claims, id uuid.UUID, req UpdateIssueRequest) (*IssueResponse, error)
	DeleteIssue(ctx context.Context, actor *token.Claims, id uuid.UUID) error
	SetCacheService(cacheService cache.Service)
}

type service struct {
	repo         Repository
	publisher    activity.Publisher
	cacheService cache.Service
	logger       *logger.Logger
}

func NewService(repo Repository, publisher activity.Publisher, log *logger.Logger) Service {
	if publisher == nil {
		publisher = activity.NoopPublisher{}
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		repo:      repo,
		publisher: publisher,
		logger:    log,
	}
}

// SetCacheService enables read caching. Without it every read hits the store.
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

// CanModify reports whether actor may update or delete issue. Role user is
// limited to its own issues; admin and super_admin may modify any.
func CanModify(actor *token.Claims, issue *Issue) bool {
	if actor.Role == users.RoleUser {
		return issue.UserID.String() == actor.ID
	}
	return actor.Role.IsPrivileged()
}

func (s *service) CreateIssue(ctx context.Context, actor *token.Claims, req CreateIssueRequest) (*IssueResponse, error) {
	authorID, err := uuid.Parse(actor.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid author id: %w", err)
	}
	priority, err := ParsePriority(req.Priority)
	if err != nil {
		return nil, err
	}

	issue := &Issue{
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		Status:      StatusOpen,
		UserID:      authorID,
	}
	if err := s.repo.Create(ctx, issue); err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}

	s.invalidate(ctx, nil)
	s.changed(ctx, activity.EventIssueCreated, actor, issue.ID)

	resp := issue.ToResponse()
	return &resp, nil
}

func (s *service) GetIssue(ctx context.Context, id uuid.UUID) (*IssueResponse, error) {
	fetch := func() (interface{}, error) {
		issue, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return issue.ToResponse(), nil
	}

	var resp IssueResponse
	if err := s.cached(ctx, constants.BuildIssueDetailKey(id.String()), constants.TTL_ISSUE_DETAIL, fetch, &resp); err != nil {
		if errors.Is(err, ErrIssueNotFound) {
			return nil, ErrIssueNotFound
		}
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}
	return &resp, nil
}

func (s *service) ListIssues(ctx context.Context, query ListIssuesQuery) ([]IssueResponse, error) {
	filter, err := parseFilter(query)
	if err != nil {
		return nil, err
	}

	fetch := func() (interface{}, error) {
		list, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		out := make([]IssueResponse, 0, len(list))
		for i := range list {
			out = append(out, list[i].ToResponse())
		}
		return out, nil
	}

	key := constants.BuildIssueListKey(string(filter.Status), string(filter.Priority), string(filter.AuthorRole))
	var out []IssueResponse
	if err := s.cached(ctx, key, constants.TTL_ISSUE_LIST, fetch, &out); err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	return out, nil
}

func (s *service) UpdateIssue(ctx context.Context, actor *token.Claims, id uuid.UUID, req UpdateIssueRequest) (*IssueResponse, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanModify(actor, current) {
		return nil, ErrNotIssueOwner
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Priority != nil {
		p, err := ParsePriority(*req.Priority)
		if err != nil {
			return nil, err
		}
		updates["priority"] = p
	}
	if req.Status != nil {
		st, err := ParseStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		updates["status"] = st
	}

	if len(updates) == 0 {
		resp := current.ToResponse()
		return &resp, nil
	}

	updated, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, &id)
	s.changed(ctx, activity.EventIssueUpdated, actor, id)

	resp := updated.ToResponse()
	return &resp, nil
}

func (s *service) DeleteIssue(ctx context.Context, actor *token.Claims, id uuid.UUID) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !CanModify(actor, current) {
		return ErrNotIssueOwner
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, &id)
	s.changed(ctx, activity.EventIssueDeleted, actor, id)
	return nil
}

func parseFilter(q ListIssuesQuery) (ListFilter, error) {
	var filter ListFilter
	if q.Status != "" {
		st, err := ParseStatus(q.Status)
		if err != nil {
			return filter, fmt.Errorf("%w: status %q", ErrInvalidFilter, q.Status)
		}
		filter.Status = st
	}
	if q.Priority != "" {
		p, err := ParsePriority(q.Priority)
		if err != nil {
			return filter, fmt.Errorf("%w: priority %q", ErrInvalidFilter, q.Priority)
		}
		filter.Priority = p
	}
	if q.Role != "" {
		role, err := users.ParseRole(q.Role)
		if err != nil {
			return filter, fmt.Errorf("%w: role %q", ErrInvalidFilter, q.Role)
		}
		filter.AuthorRole = role
	}
	return filter, nil
}

func (s *service) cached(ctx context.Context, key string, ttl time.Duration, fetch func() (interface{}, error), dest interface{}) error {
	if s.cacheService == nil {
		v, err := fetch()
		if err != nil {
			return err
		}
		return assign(v, dest)
	}
	return s.cacheService.GetOrSet(ctx, key, ttl, fetch, dest)
}

// assign copies v into dest the same way a cache hit would.
func assign(v interface{}, dest interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dest)
}

func (s *service) invalidate(ctx context.Context, issueID *uuid.UUID) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.DeletePattern(ctx, constants.PATTERN_INVALIDATE_LIST); err != nil {
		s.logger.Warn("Failed to invalidate issue list cache", slog.Any("error", err))
	}
	if issueID != nil {
		if err := s.cacheService.Delete(ctx, constants.BuildIssueDetailKey(issueID.String())); err != nil {
			s.logger.Warn("Failed to invalidate issue cache", slog.String("issue_id", issueID.String()), slog.Any("error", err))
		}
	}
}

func (s *service) changed(ctx context.Context, eventType activity.EventType, actor *token.Claims, issueID uuid.UUID) {
	action := strings.ToLower(strings.TrimPrefix(string(eventType), "ISSUE_"))
	s.logger.LogIssueChanged(ctx, action, issueID.String(), actor.ID)

	event := activity.NewEvent(eventType, actor.ID, actor.Email).WithSubject(issueID.String())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).Warn("Failed to publish activity event",
			slog.String("type", string(eventType)),
		)
	}
}
