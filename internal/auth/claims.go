package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// UserMetadata is the free-form profile block the identity provider attaches to tokens.
type UserMetadata struct {
	FullName  string `json:"full_name,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// SessionClaims mirrors the access token payload issued by the identity provider.
type SessionClaims struct {
	Email        string       `json:"email,omitempty"`
	Role         string       `json:"role,omitempty"`
	UserMetadata UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller as seen by the rest of the service.
type Identity struct {
	UserID    string
	Email     string
	Name      string
	AvatarURL string
}

// Identity extracts the caller identity. The display name prefers full_name over name.
func (c SessionClaims) Identity() Identity {
	name := strings.TrimSpace(c.UserMetadata.FullName)
	if name == "" {
		name = strings.TrimSpace(c.UserMetadata.Name)
	}
	return Identity{
		UserID:    strings.TrimSpace(c.Subject),
		Email:     strings.TrimSpace(c.Email),
		Name:      name,
		AvatarURL: strings.TrimSpace(c.UserMetadata.AvatarURL),
	}
}
