package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/lib/pq"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/domain"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store"
)

const (
	defaultPingTimeout  = 5 * time.Second
	defaultConnMaxIdle  = 2 * time.Minute
	defaultConnMaxLife  = 30 * time.Minute
	defaultMaxIdleConns = 5
	defaultMaxOpenConns = 25

	uniqueViolation = "23505"
)

// Options locate the database.
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // disable, require, verify-full
}

// URL renders the options as a postgres:// connection URL.
func (o Options) URL() string {
	sslmode := o.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", o.Host, o.Port),
		User:   url.UserPassword(o.User, o.Password),
		Path:   o.DBName,
	}
	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}

type Store struct {
	db  *sql.DB
	q   *queries
	dsn string
}

// NewStore opens a pool against dsn and checks it answers.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetConnMaxIdleTime(defaultConnMaxIdle)
	db.SetConnMaxLifetime(defaultConnMaxLife)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetMaxOpenConns(defaultMaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		q:   &queries{db: db},
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) Accounts() store.Accounts { return &accountsRepo{q: s.q} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapConstraint(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return store.ErrAlreadyExists
	}
	return err
}

func mapAccount(row accountRow) domain.Account {
	var secret *domain.SecretToken
	if row.SecretToken.Valid && row.SecretTokenExpiresAt.Valid {
		secret = &domain.SecretToken{
			Value:     row.SecretToken.String,
			ExpiresAt: row.SecretTokenExpiresAt.Time.UTC(),
		}
	}

	return domain.Account{
		ID:            row.ID,
		Email:         row.Email,
		PhoneNumber:   row.PhoneNumber,
		PasswordHash:  row.PasswordHash,
		EmailVerified: row.EmailVerified,
		Role:          domain.Role(row.Role),
		Secret:        secret,
		Locked:        row.Locked,
		Deleted:       row.Deleted,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
}

func mapAccountRow(a domain.Account) accountRow {
	row := accountRow{
		ID:            a.ID,
		Email:         a.Email,
		PhoneNumber:   a.PhoneNumber,
		PasswordHash:  a.PasswordHash,
		EmailVerified: a.EmailVerified,
		Role:          a.Role.String(),
		Locked:        a.Locked,
		Deleted:       a.Deleted,
		CreatedAt:     a.CreatedAt.UTC(),
		UpdatedAt:     a.UpdatedAt.UTC(),
	}
	if a.Secret != nil {
		row.SecretToken = sql.NullString{String: a.Secret.Value, Valid: true}
		row.SecretTokenExpiresAt = sql.NullTime{Time: a.Secret.ExpiresAt.UTC(), Valid: true}
	}
	return row
}
