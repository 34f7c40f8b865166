package auth

import "issuetrack/internal/users"

// authentication response
type AuthResponse struct {
	User         users.PublicUser `json:"user"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	ExpiresIn    int64            `json:"expires_in"`
}
