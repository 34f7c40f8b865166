package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"issuetrack/internal/activity"
	"issuetrack/internal/shared/token"
	"issuetrack/internal/users"
	"issuetrack/pkg/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidRole        = errors.New("invalid role")
	ErrRoleNotAllowed     = errors.New("role not allowed for self-registration")
)

type Service interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*token.TokenPair, error)
	ChangePassword(ctx context.Context, userID string, req *ChangePasswordRequest) error
	ListUsers(ctx context.Context) ([]users.PublicUser, error)
}

// TokenIssuer is the part of the token codec the service needs.
type TokenIssuer interface {
	IssuePair(claims token.Claims) (*token.TokenPair, error)
	Verify(kind token.Kind, tokenString string) (*token.Claims, error)
}

type service struct {
	repo      Repository
	tokens    TokenIssuer
	publisher activity.Publisher
	logger    *logger.Logger
}

// NewService wires the auth core. publisher and log may be nil.
func NewService(repo Repository, tokens TokenIssuer, publisher activity.Publisher, log *logger.Logger) Service {
	if publisher == nil {
		publisher = activity.NoopPublisher{}
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		repo:      repo,
		tokens:    tokens,
		publisher: publisher,
		logger:    log,
	}
}

// Register creates a RoleUser account. A role may be named in the request,
// but privileged roles are only granted out of band (seeding, direct DB).
func (s *service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	role := users.RoleUser
	if req.Role != "" {
		parsed, err := users.ParseRole(req.Role)
		if err != nil {
			return nil, ErrInvalidRole
		}
		if parsed.IsPrivileged() {
			s.logger.LogAuthFailure(ctx, "register", "privileged role requested: "+parsed.String())
			return nil, ErrRoleNotAllowed
		}
		role = parsed
	}

	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &users.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hashedPassword,
		Role:     role,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publish(ctx, activity.NewEvent(activity.EventUserRegistered, user.ID.String(), user.Email).
		WithMeta("role", role.String()))

	return s.session(user)
}

// Login verifies credentials and issues a fresh token pair. The two failure
// kinds stay distinct here; callers must present them identically.
func (s *service) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			burnPasswordCheck(password)
			s.loginFailed(ctx, email, ErrUserNotFound)
			return nil, ErrUserNotFound
		}
		s.logger.ErrorWithContext(ctx, "User lookup failed", err, map[string]interface{}{
			"method": "password",
		})
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !VerifyPassword(password, user.Password) {
		s.loginFailed(ctx, email, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	resp, err := s.session(user)
	if err != nil {
		return nil, err
	}

	s.logger.LogAuthSuccess(ctx, user.ID.String(), "password")
	s.publish(ctx, activity.NewEvent(activity.EventLoginSucceeded, user.ID.String(), user.Email))
	return resp, nil
}

// RefreshToken rotates a token pair. Claims are rebuilt from the current user
// record, so role changes since login take effect. The presented refresh token
// is not revoked and stays valid until its own expiry.
func (s *service) RefreshToken(ctx context.Context, refreshToken string) (*token.TokenPair, error) {
	if refreshToken == "" {
		return nil, token.ErrTokenMissing
	}

	claims, err := s.tokens.Verify(token.KindRefresh, refreshToken)
	if err != nil {
		s.logger.LogTokenRejected(ctx, string(token.KindRefresh), errors.Is(err, token.ErrTokenExpired), err)
		return nil, token.ErrTokenInvalid
	}

	user, err := s.repo.GetUserByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.logger.LogAuthFailure(ctx, "refresh", "user no longer exists")
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	pair, err := s.tokens.IssuePair(token.ClaimsFor(user))
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	s.logger.LogAuthSuccess(ctx, user.ID.String(), "refresh")
	s.publish(ctx, activity.NewEvent(activity.EventTokenRefreshed, user.ID.String(), user.Email))
	return pair, nil
}

func (s *service) ChangePassword(ctx context.Context, userID string, req *ChangePasswordRequest) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	if !VerifyPassword(req.CurrentPassword, user.Password) {
		return ErrInvalidCredentials
	}

	hashedPassword, err := HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.repo.UpdateUserPassword(ctx, userID, hashedPassword); err != nil {
		return err
	}

	s.logger.WithUserID(userID).InfoContext(ctx, "Password changed")
	s.publish(ctx, activity.NewEvent(activity.EventPasswordChanged, user.ID.String(), user.Email))
	return nil
}

func (s *service) ListUsers(ctx context.Context) ([]users.PublicUser, error) {
	list, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]users.PublicUser, 0, len(list))
	for i := range list {
		out = append(out, list[i].Public())
	}
	return out, nil
}

func (s *service) session(user *users.User) (*AuthResponse, error) {
	pair, err := s.tokens.IssuePair(token.ClaimsFor(user))
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	return &AuthResponse{
		User:         user.Public(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

func (s *service) loginFailed(ctx context.Context, email string, reason error) {
	s.logger.LogAuthFailure(ctx, "password", reason.Error())
	s.publish(ctx, activity.NewEvent(activity.EventLoginFailed, "", email).
		WithMeta("reason", reason.Error()))
}

// publish never fails the request; the activity stream is best effort.
// Production wires an activity.AsyncPublisher, so this does not wait on Kafka.
func (s *service) publish(ctx context.Context, event *activity.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).Warn("Failed to publish activity event",
			slog.String("type", string(event.Type)),
		)
	}
}
