package service

import (
	"fmt"
	"time"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/domain"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/jwtx"
)

const (
	DefaultIssuer   = "login_app"
	TokenTypeBearer = "Bearer"
)

// Session is the bearer token handed out on login.
type Session struct {
	AccessToken string
	TokenType   string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// ExpiresIn is the token lifetime in whole seconds.
func (s Session) ExpiresIn() int64 {
	return int64(s.ExpiresAt.Sub(s.IssuedAt) / time.Second)
}

// SessionIssuer signs session tokens whose scope is the account role.
type SessionIssuer struct {
	KeyManager *jwtx.KeyManager
	Issuer     string
	TTL        time.Duration
}

// Issue signs a session token for email with the given role.
func (s *SessionIssuer) Issue(email string, role domain.Role, now time.Time) (Session, error) {
	issuer := s.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}

	claims := jwtx.NewSessionClaims(issuer, email, role.String(), s.TTL, now)

	token, err := s.KeyManager.Sign(claims)
	if err != nil {
		return Session{}, fmt.Errorf("sign session token: %w", err)
	}

	return Session{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		IssuedAt:    claims.IssuedAt.Time,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}
