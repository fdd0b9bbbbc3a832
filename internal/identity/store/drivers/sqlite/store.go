package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/domain"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

type Store struct {
	db  *sql.DB
	q   *queries
	dsn string
}

// DSN builds the modernc connection string for a database file. File
// databases run in WAL mode and take the write lock when a transaction
// begins, so read-modify-write transitions serialise.
func DSN(path string) string {
	if path == MemoryPath {
		return ":memory:?_pragma=foreign_keys(1)"
	}
	return "file:" + path +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_txlock=immediate"
}

// NewStore opens the database at path, or an in-memory database for
// MemoryPath.
func NewStore(path string) (*Store, error) {
	dsn := DSN(path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Every connection to :memory: is a separate database.
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		q:   newQueries(db),
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
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
		_ = tx.Rollback() // no-op after commit
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

// mapConstraint turns unique violations into store.ErrAlreadyExists.
func mapConstraint(err error) error {
	var se *msqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return store.ErrAlreadyExists
		}
	}
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return store.ErrAlreadyExists
	}
	return err
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func mapAccount(row accountRow) domain.Account {
	var secret *domain.SecretToken
	if row.SecretToken.Valid && row.SecretTokenExpiresAt.Valid {
		secret = &domain.SecretToken{
			Value:     row.SecretToken.String,
			ExpiresAt: fromMillis(row.SecretTokenExpiresAt.Int64),
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
		CreatedAt:     fromMillis(row.CreatedAt),
		UpdatedAt:     fromMillis(row.UpdatedAt),
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
		CreatedAt:     toMillis(a.CreatedAt),
		UpdatedAt:     toMillis(a.UpdatedAt),
	}
	if a.Secret != nil {
		row.SecretToken = sql.NullString{String: a.Secret.Value, Valid: true}
		row.SecretTokenExpiresAt = sql.NullInt64{Int64: toMillis(a.Secret.ExpiresAt), Valid: true}
	}
	return row
}
