package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuetrack/internal/activity"
	"issuetrack/internal/shared/config"
	"issuetrack/internal/shared/token"
	"issuetrack/internal/users"
	"issuetrack/pkg/logger"
)

func TestLoginIssuesPairMatchingStoredRecord(t *testing.T) {
	f := newFixture(t)
	stored := f.seedUser(t, "user@example.com", "password123", users.RoleUser)

	resp, err := f.service.Login(context.Background(), "user@example.com", "password123")
	require.NoError(t, err)

	assert.Equal(t, users.RoleUser, resp.User.Role)
	assert.Equal(t, stored.ID.String(), resp.User.ID)
	assert.Equal(t, int64(900), resp.ExpiresIn)

	access, err := f.codec.Verify(token.KindAccess, resp.AccessToken)
	require.NoError(t, err)
	refresh, err := f.codec.Verify(token.KindRefresh, resp.RefreshToken)
	require.NoError(t, err)

	want := token.Claims{ID: stored.ID.String(), Email: "user@example.com", Role: users.RoleUser}
	assert.Equal(t, want, *access)
	assert.Equal(t, want, *refresh)

	assert.Equal(t, []activity.EventType{activity.EventLoginSucceeded}, f.publisher.types())
}

func TestLoginFailureKinds(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "user@example.com", "password123", users.RoleUser)

	_, err := f.service.Login(context.Background(), "user@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.service.Login(context.Background(), "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.Equal(t, []activity.EventType{activity.EventLoginFailed, activity.EventLoginFailed}, f.publisher.types())
}

func TestLoginPropagatesStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.err = errors.New("connection refused")

	var logs bytes.Buffer
	svc := NewService(f.repo, f.codec, f.publisher, &logger.Logger{Logger: slog.New(slog.NewJSONHandler(&logs, nil))})

	_, err := svc.Login(context.Background(), "user@example.com", "password123")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUserNotFound))
	assert.False(t, errors.Is(err, ErrInvalidCredentials))
	assert.Contains(t, logs.String(), "User lookup failed")
	assert.Contains(t, logs.String(), "connection refused")
}

func TestRefreshRotatesPair(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "user@example.com", "password123", users.RoleUser)

	login, err := f.service.Login(context.Background(), "user@example.com", "password123")
	require.NoError(t, err)

	f.clock.Advance(20 * time.Minute)

	pair, err := f.service.RefreshToken(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.AccessToken, pair.AccessToken)

	claims, err := f.codec.Verify(token.KindAccess, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email)

	// stateless: the old refresh token remains usable until it expires
	_, err = f.service.RefreshToken(context.Background(), login.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshPicksUpRoleChange(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "user@example.com", "password123", users.RoleUser)

	login, err := f.service.Login(context.Background(), "user@example.com", "password123")
	require.NoError(t, err)

	f.repo.setRole(u.ID, users.RoleAdmin)

	pair, err := f.service.RefreshToken(context.Background(), login.RefreshToken)
	require.NoError(t, err)

	claims, err := f.codec.Verify(token.KindAccess, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, users.RoleAdmin, claims.Role)
}

func TestRefreshFailures(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "user@example.com", "password123", users.RoleUser)
	ctx := context.Background()

	_, err := f.service.RefreshToken(ctx, "")
	assert.ErrorIs(t, err, token.ErrTokenMissing)

	login, err := f.service.Login(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	// an access token is not a refresh token
	_, err = f.service.RefreshToken(ctx, login.AccessToken)
	assert.ErrorIs(t, err, token.ErrTokenInvalid)

	// well-formed but signed with a different secret
	foreign, err := token.NewCodec(config.JWTConfig{
		AccessSecret:     "other-access",
		RefreshSecret:    "other-refresh",
		AccessExpiresIn:  time.Minute,
		RefreshExpiresIn: time.Hour,
	}, token.WithClock(f.clock.Now))
	require.NoError(t, err)
	forged, err := foreign.Issue(token.KindRefresh, token.ClaimsFor(u))
	require.NoError(t, err)

	before := len(f.publisher.types())
	_, err = f.service.RefreshToken(ctx, forged)
	assert.ErrorIs(t, err, token.ErrTokenInvalid)
	assert.Len(t, f.publisher.types(), before, "no new pair may be issued")

	// expired refresh tokens surface as invalid too
	f.clock.Advance(7*24*time.Hour + time.Second)
	_, err = f.service.RefreshToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, token.ErrTokenInvalid)
}

func TestRefreshForDeletedUser(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "user@example.com", "password123", users.RoleUser)

	login, err := f.service.Login(context.Background(), "user@example.com", "password123")
	require.NoError(t, err)

	f.repo.delete(u.ID)

	_, err = f.service.RefreshToken(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.Register(ctx, &RegisterRequest{
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, users.RoleUser, resp.User.Role)
	assert.NotEmpty(t, resp.AccessToken)

	stored, err := f.repo.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, VerifyPassword("password123", stored.Password))

	_, err = f.service.Register(ctx, &RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	explicit, err := f.service.Register(ctx, &RegisterRequest{Name: "Bo", Email: "bo@example.com", Password: "password123", Role: "USER"})
	require.NoError(t, err)
	assert.Equal(t, users.RoleUser, explicit.User.Role)

	_, err = f.service.Register(ctx, &RegisterRequest{Name: "X", Email: "x@example.com", Password: "password123", Role: "owner"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestRegisterRefusesPrivilegedRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, role := range []string{"SUPER-ADMIN", "super_admin", "admin", " Admin "} {
		email := fmt.Sprintf("root%d@example.com", i)
		_, err := f.service.Register(ctx, &RegisterRequest{Name: "Root", Email: email, Password: "password123", Role: role})
		assert.ErrorIs(t, err, ErrRoleNotAllowed, role)

		_, err = f.repo.GetUserByEmail(ctx, email)
		assert.ErrorIs(t, err, ErrUserNotFound, role)
	}
	assert.Empty(t, f.publisher.types())
}

func TestLoginDoesNotWaitOnActivityBroker(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "user@example.com", "password123", users.RoleUser)

	blocked := &blockingPublisher{release: make(chan struct{})}
	async := activity.NewAsyncPublisher(blocked, 8, time.Second, logger.Discard())
	svc := NewService(f.repo, f.codec, async, logger.Discard())

	done := make(chan error, 1)
	go func() {
		_, err := svc.Login(context.Background(), "user@example.com", "password123")
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Login waited on the activity publisher")
	}

	close(blocked.release)
	require.NoError(t, async.Close())
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "user@example.com", "password123", users.RoleUser)
	ctx := context.Background()

	err := f.service.ChangePassword(ctx, u.ID.String(), &ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "newpass1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = f.service.ChangePassword(ctx, u.ID.String(), &ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "newpass1"})
	require.NoError(t, err)

	_, err = f.service.Login(ctx, "user@example.com", "newpass1")
	assert.NoError(t, err)
}
