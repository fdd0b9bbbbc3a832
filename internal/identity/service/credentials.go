package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/domain"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/notify"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/cryptox"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/slogx"
)

const (
	DefaultResetTokenTTL   = 300 * time.Second
	DefaultSessionTokenTTL = 300 * time.Second
)

// Config is the read-only configuration the lifecycle runs with.
type Config struct {
	ResetTokenTTL   time.Duration
	NotifierBaseURL string
	NotifierFrom    string
}

func (c Config) resetTTL() time.Duration {
	if c.ResetTokenTTL <= 0 {
		return DefaultResetTokenTTL
	}
	return c.ResetTokenTTL
}

func (c Config) from() string {
	if c.NotifierFrom == "" {
		return DefaultNotifierFrom
	}
	return c.NotifierFrom
}

// TokenGenerator returns a fresh URL-safe secret token.
type TokenGenerator func() (string, error)

// Clock returns the current time.
type Clock func() time.Time

// Enqueuer accepts messages for asynchronous delivery.
type Enqueuer interface {
	Enqueue(msg notify.Message) error
}

// RegisterInput is a validated registration request.
type RegisterInput struct {
	Email       string
	PhoneNumber string
	Password    string
	Role        domain.Role
}

// CredentialService runs the account credential and token lifecycle. Every
// transition reads, checks and writes one account inside a single
// transaction; notifications go out only after commit.
type CredentialService struct {
	Store    store.Store
	Hasher   cryptox.PasswordHasher
	Sessions *SessionIssuer
	Mailer   Enqueuer
	Config   Config

	// Tokens and Clock default to cryptox.NewSecretToken and time.Now.
	Tokens TokenGenerator
	Clock  Clock

	dummyOnce sync.Once
	dummyHash string
}

func (s *CredentialService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func (s *CredentialService) newToken() (string, error) {
	if s.Tokens != nil {
		return s.Tokens()
	}
	return cryptox.NewSecretToken()
}

// Register creates an unverified account with a pending verification token
// and mails that token.
func (s *CredentialService) Register(ctx context.Context, in RegisterInput) (domain.Account, error) {
	l := slogx.FromContext(ctx)
	email := domain.NormalizeEmail(in.Email)

	// 1. Hash outside the transaction.
	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return domain.Account{}, err
	}

	var created domain.Account
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		now := s.now()

		// 2. Reject a taken email.
		_, err := tx.Accounts().FindByEmail(ctx, email)
		switch {
		case err == nil:
			return ErrDuplicateEmail
		case !errors.Is(err, store.ErrNotFound):
			return infrastructure("find account", err)
		}

		// 3. Insert the unverified account, then attach its token.
		account, err := tx.Accounts().Save(ctx, domain.NewAccount(email, in.PhoneNumber, hash, in.Role, now))
		if err != nil {
			return mapSaveError(err)
		}

		token, err := s.newToken()
		if err != nil {
			return infrastructure("generate token", err)
		}

		created, err = tx.Accounts().Save(ctx, account.WithSecretToken(token, now.Add(s.Config.resetTTL()), now))
		if err != nil {
			return mapSaveError(err)
		}
		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}

	l.Info("account registered", slog.String("email", created.Email), slog.String("role", created.Role.String()))
	s.enqueue(ctx, verificationMessage(s.Config, created.Email, created.Secret.Value))

	return created, nil
}

// Login checks credentials and issues a session token. Unknown emails and
// wrong passwords fail identically.
func (s *CredentialService) Login(ctx context.Context, email, password string) (Session, error) {
	l := slogx.FromContext(ctx)

	account, err := s.Store.Accounts().FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return Session{}, infrastructure("find account", err)
		}
		// Burn the same hashing time as a real check.
		s.Hasher.Verify(password, s.dummy())
		l.Info("login failed", slog.String("email", domain.NormalizeEmail(email)))
		return Session{}, ErrInvalidCredentials
	}

	if !s.Hasher.Verify(password, account.PasswordHash) {
		l.Info("login failed", slog.String("email", account.Email))
		return Session{}, ErrInvalidCredentials
	}

	session, err := s.Sessions.Issue(account.Email, account.Role, s.now())
	if err != nil {
		return Session{}, infrastructure("issue session", err)
	}

	l.Info("login succeeded", slog.String("email", account.Email))
	return session, nil
}

// RequestPasswordReset issues a fresh reset token, replacing any pending one,
// and mails it.
func (s *CredentialService) RequestPasswordReset(ctx context.Context, email string) error {
	l := slogx.FromContext(ctx)
	email = domain.NormalizeEmail(email)

	var updated domain.Account
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		account, err := tx.Accounts().FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnknownEmail
			}
			return infrastructure("find account", err)
		}

		token, err := s.newToken()
		if err != nil {
			return infrastructure("generate token", err)
		}

		now := s.now()
		updated, err = tx.Accounts().Save(ctx, account.WithSecretToken(token, now.Add(s.Config.resetTTL()), now))
		if err != nil {
			return mapSaveError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.Info("password reset requested", slog.String("email", updated.Email))
	s.enqueue(ctx, resetMessage(s.Config, updated.Email, updated.Secret.Value))
	return nil
}

// ResetPassword consumes a reset token and sets a new password. An expired
// token is left in place.
func (s *CredentialService) ResetPassword(ctx context.Context, token, newPassword string) error {
	l := slogx.FromContext(ctx)

	// 1. Hash before opening the transaction.
	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}

	var updated domain.Account
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// 2. Find the holder of the token.
		account, err := tx.Accounts().FindBySecretToken(ctx, token)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTokenNotFound
			}
			return infrastructure("find account", err)
		}

		// 3. Reject expired tokens without touching them.
		now := s.now()
		if account.Secret == nil || account.Secret.Expired(now) {
			return ErrTokenExpired
		}

		// 4. Replace the hash and consume the token.
		updated, err = tx.Accounts().Save(ctx, account.WithPasswordHash(hash, now))
		if err != nil {
			return mapSaveError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.Info("password reset", slog.String("email", updated.Email))
	return nil
}

// VerifyEmail consumes a verification token. It reports false, without
// changing anything, when the stored token does not match exactly.
func (s *CredentialService) VerifyEmail(ctx context.Context, token string) (bool, error) {
	l := slogx.FromContext(ctx)

	verified := false
	var email string
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		account, err := tx.Accounts().FindBySecretToken(ctx, token)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrVerificationTokenNotFound
			}
			return infrastructure("find account", err)
		}

		if account.Secret == nil || !cryptox.TokensEqual(account.Secret.Value, token) {
			return nil
		}

		updated, err := tx.Accounts().Save(ctx, account.Verified(s.now()))
		if err != nil {
			return mapSaveError(err)
		}
		verified, email = true, updated.Email
		return nil
	})
	if err != nil {
		return false, err
	}

	if verified {
		l.Info("email verified", slog.String("email", email))
	} else {
		l.Warn("email verification token mismatch")
	}
	return verified, nil
}

// hashPassword reports input the hasher refuses as a client fault.
func (s *CredentialService) hashPassword(password string) (string, error) {
	hash, err := s.Hasher.Hash(password)
	switch {
	case errors.Is(err, cryptox.ErrPasswordTooLong):
		return "", ErrPasswordTooLong
	case err != nil:
		return "", infrastructure("hash password", err)
	}
	return hash, nil
}

func (s *CredentialService) enqueue(ctx context.Context, msg notify.Message) {
	if s.Mailer == nil {
		return
	}
	if err := s.Mailer.Enqueue(msg); err != nil {
		slogx.FromContext(ctx).Error("failed to enqueue notification",
			slog.String("to", msg.To),
			slog.String("kind", string(msg.Kind)),
			slog.Any("error", err),
		)
	}
}

// dummy returns a hash in the configured algorithm for timing equalisation.
func (s *CredentialService) dummy() string {
	s.dummyOnce.Do(func() {
		if h, err := s.Hasher.Hash("identity-timing-equaliser"); err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func mapSaveError(err error) error {
	if errors.Is(err, store.ErrAlreadyExists) {
		return ErrDuplicateEmail
	}
	return infrastructure("save account", err)
}
