package issues

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuetrack/internal/shared/constants"
	"issuetrack/internal/users"
	"issuetrack/pkg/logger"
)

type testUsers struct {
	alice, bob, admin, root *users.User
}

func seedAuthors() testUsers {
	return testUsers{
		alice: newUser("alice@example.com", users.RoleUser),
		bob:   newUser("bob@example.com", users.RoleUser),
		admin: newUser("admin@example.com", users.RoleAdmin),
		root:  newUser("superadmin@example.com", users.RoleSuperAdmin),
	}
}

func newTestService(t *testing.T) (Service, *memoryRepo, testUsers) {
	t.Helper()
	u := seedAuthors()
	repo := newMemoryRepo(u.alice, u.bob, u.admin, u.root)
	return NewService(repo, nil, logger.Discard()), repo, u
}

func create(t *testing.T, svc Service, author *users.User, title, priority string) *IssueResponse {
	t.Helper()
	issue, err := svc.CreateIssue(context.Background(), claimsOf(author), CreateIssueRequest{
		Title:       title,
		Description: "some description",
		Priority:    priority,
	})
	require.NoError(t, err)
	return issue
}

func TestCreateIssueDefaults(t *testing.T) {
	svc, _, u := newTestService(t)

	issue := create(t, svc, u.alice, "Fix authentication bug", "high")
	assert.Equal(t, PriorityHigh, issue.Priority)
	assert.Equal(t, StatusOpen, issue.Status)
	assert.Equal(t, u.alice.ID.String(), issue.UserID)
	require.NotNil(t, issue.User)
	assert.Equal(t, "alice@example.com", issue.User.Email)

	_, err := svc.CreateIssue(context.Background(), claimsOf(u.alice), CreateIssueRequest{
		Title: "Bad", Description: "bad priority", Priority: "urgent",
	})
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestListIssuesFiltersAndOrder(t *testing.T) {
	svc, _, u := newTestService(t)
	ctx := context.Background()

	first := create(t, svc, u.alice, "Fix authentication bug", "HIGH")
	second := create(t, svc, u.admin, "Add pagination to issue list", "MEDIUM")
	third := create(t, svc, u.root, "Update UI theme", "LOW")

	all, err := svc.ListIssues(ctx, ListIssuesQuery{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{third.ID, second.ID, first.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	high, err := svc.ListIssues(ctx, ListIssuesQuery{Priority: "high"})
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, first.ID, high[0].ID)

	byAdmins, err := svc.ListIssues(ctx, ListIssuesQuery{Role: "ADMIN"})
	require.NoError(t, err)
	require.Len(t, byAdmins, 1)
	assert.Equal(t, second.ID, byAdmins[0].ID)

	open, err := svc.ListIssues(ctx, ListIssuesQuery{Status: "open"})
	require.NoError(t, err)
	assert.Len(t, open, 3)

	_, err = svc.ListIssues(ctx, ListIssuesQuery{Status: "done"})
	assert.ErrorIs(t, err, ErrInvalidFilter)
	_, err = svc.ListIssues(ctx, ListIssuesQuery{Role: "owner"})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestOwnershipRule(t *testing.T) {
	svc, _, u := newTestService(t)
	ctx := context.Background()

	issue := create(t, svc, u.alice, "Fix authentication bug", "HIGH")
	id := uuid.MustParse(issue.ID)
	title := "Renamed"

	_, err := svc.UpdateIssue(ctx, claimsOf(u.bob), id, UpdateIssueRequest{Title: &title})
	assert.ErrorIs(t, err, ErrNotIssueOwner)
	assert.ErrorIs(t, svc.DeleteIssue(ctx, claimsOf(u.bob), id), ErrNotIssueOwner)

	updated, err := svc.UpdateIssue(ctx, claimsOf(u.alice), id, UpdateIssueRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	status := "in-progress"
	updated, err = svc.UpdateIssue(ctx, claimsOf(u.admin), id, UpdateIssueRequest{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, updated.Status)

	require.NoError(t, svc.DeleteIssue(ctx, claimsOf(u.root), id))

	_, err = svc.GetIssue(ctx, id)
	assert.ErrorIs(t, err, ErrIssueNotFound)
}

func TestUpdateRejectsInvalidValues(t *testing.T) {
	svc, _, u := newTestService(t)
	issue := create(t, svc, u.alice, "Fix authentication bug", "HIGH")

	bad := "blocked"
	_, err := svc.UpdateIssue(context.Background(), claimsOf(u.alice), uuid.MustParse(issue.ID), UpdateIssueRequest{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateIssue(context.Background(), claimsOf(u.alice), uuid.New(), UpdateIssueRequest{Status: &bad})
	assert.ErrorIs(t, err, ErrIssueNotFound)
}

func TestListIsCachedAndInvalidated(t *testing.T) {
	svc, repo, u := newTestService(t)
	cacheService, mr := newCache(t)
	svc.SetCacheService(cacheService)
	ctx := context.Background()

	create(t, svc, u.alice, "Fix authentication bug", "HIGH")

	_, err := svc.ListIssues(ctx, ListIssuesQuery{})
	require.NoError(t, err)
	_, err = svc.ListIssues(ctx, ListIssuesQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls())
	assert.True(t, mr.Exists(constants.BuildIssueListKey("", "", "")))

	create(t, svc, u.bob, "Update UI theme", "LOW")
	assert.False(t, mr.Exists(constants.BuildIssueListKey("", "", "")))

	list, err := svc.ListIssues(ctx, ListIssuesQuery{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 2, repo.listCalls())
}

func TestDetailCacheDroppedOnUpdate(t *testing.T) {
	svc, _, u := newTestService(t)
	cacheService, mr := newCache(t)
	svc.SetCacheService(cacheService)
	ctx := context.Background()

	issue := create(t, svc, u.alice, "Fix authentication bug", "HIGH")
	id := uuid.MustParse(issue.ID)

	_, err := svc.GetIssue(ctx, id)
	require.NoError(t, err)
	assert.True(t, mr.Exists(constants.BuildIssueDetailKey(issue.ID)))

	title := "Fix login bug"
	_, err = svc.UpdateIssue(ctx, claimsOf(u.alice), id, UpdateIssueRequest{Title: &title})
	require.NoError(t, err)
	assert.False(t, mr.Exists(constants.BuildIssueDetailKey(issue.ID)))

	got, err := svc.GetIssue(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Fix login bug", got.Title)
}

func TestParseEnums(t *testing.T) {
	p, err := ParsePriority(" medium ")
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, p)

	s, err := ParseStatus("In_Progress")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, s)

	_, err = ParseStatus("")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
