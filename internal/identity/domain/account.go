package domain

import (
	"strings"
	"time"
)

// SecretToken is the single outstanding email-verification or password-reset
// token of an account. Value and expiry always travel together.
type SecretToken struct {
	Value     string
	ExpiresAt time.Time
}

// Expired reports whether the token's expiry lies strictly before now.
func (t SecretToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}

// Account is a registered identity. It is treated as an immutable value: the
// transition methods return an updated copy.
type Account struct {
	ID            string
	Email         string
	PhoneNumber   string
	PasswordHash  string
	EmailVerified bool
	Role          Role
	Secret        *SecretToken
	Locked        bool // reserved
	Deleted       bool // reserved
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewAccount builds an unverified account with no pending token.
func NewAccount(email, phone, passwordHash string, role Role, now time.Time) Account {
	now = now.UTC()
	return Account{
		Email:        NormalizeEmail(email),
		PhoneNumber:  strings.TrimSpace(phone),
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// HasPendingToken reports whether a secret token is outstanding.
func (a Account) HasPendingToken() bool { return a.Secret != nil }

// WithSecretToken replaces any outstanding token.
func (a Account) WithSecretToken(value string, expiresAt, now time.Time) Account {
	a.Secret = &SecretToken{Value: value, ExpiresAt: expiresAt.UTC()}
	a.UpdatedAt = now.UTC()
	return a
}

// WithPasswordHash sets a new hash and consumes the outstanding token.
func (a Account) WithPasswordHash(hash string, now time.Time) Account {
	a.PasswordHash = hash
	a.Secret = nil
	a.UpdatedAt = now.UTC()
	return a
}

// Verified marks the email verified and consumes the outstanding token.
func (a Account) Verified(now time.Time) Account {
	a.EmailVerified = true
	a.Secret = nil
	a.UpdatedAt = now.UTC()
	return a
}
