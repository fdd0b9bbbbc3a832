package postgres

import (
	"context"
	"database/sql"
	"time"
)

type dbtx interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// queries runs the account statements. Inside a transaction lookups take a
// row lock so read-modify-write transitions on one account serialise.
type queries struct {
	db   dbtx
	lock bool
}

type accountRow struct {
	ID                   string
	Email                string
	PhoneNumber          string
	PasswordHash         string
	EmailVerified        bool
	Role                 string
	SecretToken          sql.NullString
	SecretTokenExpiresAt sql.NullTime
	Locked               bool
	Deleted              bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

const accountColumns = `id, email, phone_number, password_hash, email_verified, role,
	secret_token, secret_token_expires_at, locked, deleted, created_at, updated_at`

func (q *queries) selectOne(ctx context.Context, where string, arg any) (accountRow, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where
	if q.lock {
		query += ` FOR UPDATE`
	}

	var r accountRow
	err := q.db.QueryRowContext(ctx, query, arg).Scan(
		&r.ID,
		&r.Email,
		&r.PhoneNumber,
		&r.PasswordHash,
		&r.EmailVerified,
		&r.Role,
		&r.SecretToken,
		&r.SecretTokenExpiresAt,
		&r.Locked,
		&r.Deleted,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

func (q *queries) GetAccountByEmail(ctx context.Context, email string) (accountRow, error) {
	return q.selectOne(ctx, `email = $1`, email)
}

func (q *queries) GetAccountBySecretToken(ctx context.Context, token string) (accountRow, error) {
	return q.selectOne(ctx, `secret_token = $1`, token)
}

func (q *queries) GetAccountByID(ctx context.Context, id string) (accountRow, error) {
	return q.selectOne(ctx, `id = $1`, id)
}

const createAccount = `INSERT INTO accounts (` + accountColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func (q *queries) CreateAccount(ctx context.Context, r accountRow) error {
	_, err := q.db.ExecContext(ctx, createAccount,
		r.ID,
		r.Email,
		r.PhoneNumber,
		r.PasswordHash,
		r.EmailVerified,
		r.Role,
		r.SecretToken,
		r.SecretTokenExpiresAt,
		r.Locked,
		r.Deleted,
		r.CreatedAt,
		r.UpdatedAt,
	)
	return err
}

const updateAccount = `UPDATE accounts SET
	email = $1,
	phone_number = $2,
	password_hash = $3,
	email_verified = $4,
	role = $5,
	secret_token = $6,
	secret_token_expires_at = $7,
	locked = $8,
	deleted = $9,
	updated_at = $10
WHERE id = $11`

func (q *queries) UpdateAccount(ctx context.Context, r accountRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateAccount,
		r.Email,
		r.PhoneNumber,
		r.PasswordHash,
		r.EmailVerified,
		r.Role,
		r.SecretToken,
		r.SecretTokenExpiresAt,
		r.Locked,
		r.Deleted,
		r.UpdatedAt,
		r.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const clearExpiredSecretTokens = `UPDATE accounts
SET secret_token = NULL, secret_token_expires_at = NULL, updated_at = $1
WHERE secret_token_expires_at IS NOT NULL AND secret_token_expires_at < $2`

func (q *queries) ClearExpiredSecretTokens(ctx context.Context, now, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, clearExpiredSecretTokens, now, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
