package sqlite

import (
	"context"
	"time"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/domain"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/idx"
)

type accountsRepo struct {
	q *queries
}

func (r *accountsRepo) FindByEmail(ctx context.Context, email string) (domain.Account, error) {
	row, err := r.q.GetAccountByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return mapAccount(row), nil
}

func (r *accountsRepo) FindBySecretToken(ctx context.Context, token string) (domain.Account, error) {
	row, err := r.q.GetAccountBySecretToken(ctx, token)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return mapAccount(row), nil
}

func (r *accountsRepo) Save(ctx context.Context, a domain.Account) (domain.Account, error) {
	a.Email = domain.NormalizeEmail(a.Email)

	// 1. New account: assign an id and insert.
	if a.ID == "" {
		a.ID = idx.New().String()
		if err := r.q.CreateAccount(ctx, mapAccountRow(a)); err != nil {
			return domain.Account{}, mapConstraint(err)
		}
		return r.reload(ctx, a.ID)
	}

	// 2. Existing account: full update by id.
	n, err := r.q.UpdateAccount(ctx, mapAccountRow(a))
	if err != nil {
		return domain.Account{}, mapConstraint(err)
	}
	if n == 0 {
		return domain.Account{}, store.ErrNotFound
	}
	return r.reload(ctx, a.ID)
}

func (r *accountsRepo) ClearExpiredSecretTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.q.ClearExpiredSecretTokens(ctx, toMillis(time.Now()), toMillis(cutoff))
}

func (r *accountsRepo) reload(ctx context.Context, id string) (domain.Account, error) {
	row, err := r.q.GetAccountByID(ctx, id)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return mapAccount(row), nil
}
