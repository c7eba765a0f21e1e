package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingToken = errors.New("missing token")
)

// Role is one granted authority as issued by the rental API.
type Role struct {
	Authority string `json:"authority"`
}

// AccessClaims are the claims the rental API puts into access tokens
type AccessClaims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Roles  []Role `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenInfo is what the client learns from an access token.
type TokenInfo struct {
	UserID    string
	Email     string
	Roles     []string
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at now. Tokens
// without an exp claim never expire on the client side.
func (i TokenInfo) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// PrimaryRole returns the first granted role, or "".
func (i TokenInfo) PrimaryRole() string {
	if len(i.Roles) == 0 {
		return ""
	}
	return i.Roles[0]
}

type TokenInspector interface {
	Inspect(token string) (*TokenInfo, error)
}

// tokenInspector decodes claims without verifying the signature: the client
// never holds the server key, the API verifies every request itself.
type tokenInspector struct {
	parser *jwt.Parser
}

func NewTokenInspector() TokenInspector {
	return &tokenInspector{parser: jwt.NewParser()}
}

func (i *tokenInspector) Inspect(token string) (*TokenInfo, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims := &AccessClaims{}
	if _, _, err := i.parser.ParseUnverified(token, claims); err != nil {
		return nil, ErrInvalidToken
	}

	info := &TokenInfo{
		UserID: claims.UserID,
		Email:  claims.Email,
	}
	if info.UserID == "" {
		info.UserID = claims.Subject
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	for _, r := range claims.Roles {
		if r.Authority != "" {
			info.Roles = append(info.Roles, r.Authority)
		}
	}
	return info, nil
}
