// Package token issues and verifies the signed access and refresh tokens
// that carry a caller's identity claims.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"issuetrack/internal/shared/config"
	"issuetrack/internal/users"
)

// Kind selects the secret and lifetime a token is signed with.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	ErrTokenMissing = errors.New("token missing")
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrUnknownKind  = errors.New("unknown token kind")
)

// Claims is the identity embedded in both token kinds.
type Claims struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Role  users.Role `json:"role"`
}

// ClaimsFor builds identity claims from the current user record.
func ClaimsFor(u *users.User) Claims {
	return Claims{
		ID:    u.ID.String(),
		Email: u.Email,
		Role:  u.Role,
	}
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// jwtClaims is the wire payload.
type jwtClaims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Type  Kind   `json:"type"`
	jwt.RegisteredClaims
}

type signingKey struct {
	secret []byte
	ttl    time.Duration
}

// Codec signs and verifies tokens. It is immutable after construction and
// safe for concurrent use.
type Codec struct {
	keys   map[Kind]signingKey
	issuer string
	now    func() time.Time
}

type Option func(*Codec)

// WithClock replaces the wall clock used for iat/exp and for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

func NewCodec(cfg config.JWTConfig, opts ...Option) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.AccessExpiresIn <= 0 || cfg.RefreshExpiresIn <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}

	c := &Codec{
		keys: map[Kind]signingKey{
			KindAccess:  {secret: []byte(cfg.AccessSecret), ttl: cfg.AccessExpiresIn},
			KindRefresh: {secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshExpiresIn},
		},
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the lifetime of tokens of the given kind.
func (c *Codec) TTL(kind Kind) time.Duration {
	return c.keys[kind].ttl
}

func (c *Codec) Issue(kind Kind, claims Claims) (string, error) {
	return c.issueAt(kind, claims, c.now())
}

// IssuePair signs both kinds from the same claims and the same clock reading.
func (c *Codec) IssuePair(claims Claims) (*TokenPair, error) {
	now := c.now()

	access, err := c.issueAt(KindAccess, claims, now)
	if err != nil {
		return nil, err
	}
	refresh, err := c.issueAt(KindRefresh, claims, now)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(c.TTL(KindAccess).Seconds()),
	}, nil
}

func (c *Codec) issueAt(kind Kind, claims Claims, now time.Time) (string, error) {
	key, ok := c.keys[kind]
	if !ok {
		return "", ErrUnknownKind
	}

	payload := jwtClaims{
		ID:    claims.ID,
		Email: claims.Email,
		Role:  claims.Role.String(),
		Type:  kind,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(key.ttl)),
			Issuer:    c.issuer,
			Subject:   claims.ID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(key.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify checks signature, kind and expiry. Expiry is evaluated against the
// codec clock: a token is valid strictly before its exp instant.
func (c *Codec) Verify(kind Kind, tokenString string) (*Claims, error) {
	key, ok := c.keys[kind]
	if !ok {
		return nil, ErrUnknownKind
	}
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var payload jwtClaims
	_, err := parser.ParseWithClaims(tokenString, &payload, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return key.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if payload.Type != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrTokenInvalid, kind, payload.Type)
	}
	if payload.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp", ErrTokenInvalid)
	}
	if !payload.VerifyExpiresAt(c.now(), true) {
		return nil, ErrTokenExpired
	}
	if payload.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrTokenInvalid)
	}

	role, err := users.ParseRole(payload.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	return &Claims{
		ID:    payload.ID,
		Email: payload.Email,
		Role:  role,
	}, nil
}
