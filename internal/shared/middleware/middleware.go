package middleware

import (
	"errors"
	"net/http"
	"strings"

	"issuetrack/internal/shared/token"
	"issuetrack/internal/shared/utils/response"
	"issuetrack/internal/users"
	"issuetrack/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ClaimsKey is the gin context key holding *token.Claims of the authenticated caller.
const ClaimsKey = "auth_claims"

var ErrForbidden = errors.New("forbidden")

// Verifier is the part of the token codec the gate needs.
type Verifier interface {
	Verify(kind token.Kind, tokenString string) (*token.Claims, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", token.ErrTokenMissing
	}
	tok := strings.TrimSpace(parts[1])
	if tok == "" {
		return "", token.ErrTokenMissing
	}
	return tok, nil
}

// Authenticate verifies the presented access token.
func Authenticate(v Verifier, header string) (*token.Claims, error) {
	tok, err := BearerToken(header)
	if err != nil {
		return nil, err
	}
	return v.Verify(token.KindAccess, tok)
}

// Authorize checks role membership. An empty allow-set admits any authenticated caller.
func Authorize(claims *token.Claims, allowed []users.Role) error {
	if len(allowed) == 0 || claims.Role.In(allowed...) {
		return nil
	}
	return ErrForbidden
}

// RequireAuth is the request guard for protected routes: the access token must
// verify and the caller's role must be in allowed. Claims are attached to the
// context under ClaimsKey.
func RequireAuth(v Verifier, allowed ...users.Role) gin.HandlerFunc {
	log := logger.GetDefault()

	return func(c *gin.Context) {
		claims, err := Authenticate(v, c.GetHeader("Authorization"))
		if err != nil {
			switch {
			case errors.Is(err, token.ErrTokenMissing):
				response.AbortWithError(c, http.StatusUnauthorized, "Access token missing")
			default:
				log.LogTokenRejected(c.Request.Context(), string(token.KindAccess), errors.Is(err, token.ErrTokenExpired), err)
				response.AbortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			}
			return
		}

		c.Set(ClaimsKey, claims)

		if err := Authorize(claims, allowed); err != nil {
			log.LogAccessDenied(c.Request.Context(), claims.ID, claims.Role.String(), c.FullPath())
			response.AbortWithError(c, http.StatusForbidden, "Forbidden: insufficient permissions")
			return
		}

		c.Next()
	}
}

// ClaimsFromContext returns the claims attached by RequireAuth.
func ClaimsFromContext(c *gin.Context) (*token.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*token.Claims)
	return claims, ok
}
