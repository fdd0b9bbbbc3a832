package store

import (
	"context"
	"errors"
	"time"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Repositories hang off the Store so a Tx-scoped Store hands
// out Tx-scoped repositories, and nested transactions are impossible to write
// by accident.
type Store interface {
	Accounts() Accounts

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. The transaction commits when
	// fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying connection pool.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// FindByEmail looks up by normalised email. Inside a transaction the row
	// is locked for update where the driver supports it.
	FindByEmail(ctx context.Context, email string) (domain.Account, error)

	// FindBySecretToken looks up the account holding token as its
	// outstanding secret token.
	FindBySecretToken(ctx context.Context, token string) (domain.Account, error)

	// Save inserts the account when it has no ID (assigning a ULID) and
	// updates it otherwise. A duplicate email or token is ErrAlreadyExists.
	Save(ctx context.Context, a domain.Account) (domain.Account, error)

	// ClearExpiredSecretTokens clears token pairs that expired before
	// cutoff and returns how many accounts were touched.
	ClearExpiredSecretTokens(ctx context.Context, cutoff time.Time) (int64, error)
}
