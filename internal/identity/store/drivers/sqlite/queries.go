package sqlite

import (
	"context"
	"database/sql"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type queries struct {
	db dbtx
}

func newQueries(db dbtx) *queries { return &queries{db: db} }

// accountRow mirrors the accounts table. Times are unix millis.
type accountRow struct {
	ID                   string
	Email                string
	PhoneNumber          string
	PasswordHash         string
	EmailVerified        bool
	Role                 string
	SecretToken          sql.NullString
	SecretTokenExpiresAt sql.NullInt64
	Locked               bool
	Deleted              bool
	CreatedAt            int64
	UpdatedAt            int64
}

const accountColumns = `id, email, phone_number, password_hash, email_verified, role,
	secret_token, secret_token_expires_at, locked, deleted, created_at, updated_at`

func scanAccount(row *sql.Row) (accountRow, error) {
	var r accountRow
	err := row.Scan(
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

const getAccountByEmail = `SELECT ` + accountColumns + ` FROM accounts WHERE email = ?`

func (q *queries) GetAccountByEmail(ctx context.Context, email string) (accountRow, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccountByEmail, email))
}

const getAccountBySecretToken = `SELECT ` + accountColumns + ` FROM accounts WHERE secret_token = ?`

func (q *queries) GetAccountBySecretToken(ctx context.Context, token string) (accountRow, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccountBySecretToken, token))
}

const getAccountByID = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

func (q *queries) GetAccountByID(ctx context.Context, id string) (accountRow, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccountByID, id))
}

const createAccount = `INSERT INTO accounts (` + accountColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

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
	email = ?,
	phone_number = ?,
	password_hash = ?,
	email_verified = ?,
	role = ?,
	secret_token = ?,
	secret_token_expires_at = ?,
	locked = ?,
	deleted = ?,
	updated_at = ?
WHERE id = ?`

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
SET secret_token = NULL, secret_token_expires_at = NULL, updated_at = ?
WHERE secret_token_expires_at IS NOT NULL AND secret_token_expires_at < ?`

func (q *queries) ClearExpiredSecretTokens(ctx context.Context, now, cutoff int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, clearExpiredSecretTokens, now, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
