// Package storetest holds the behaviour every store driver must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/domain"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store"
	"github.com/stretchr/testify/require"
)

// base is millisecond aligned so it survives any driver's time precision.
var base = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

// RunAccounts exercises store.Accounts against a fresh, migrated store
// returned by open for every subtest.
func RunAccounts(t *testing.T, open func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("save assigns id and round trips", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		a := domain.NewAccount("Alice@Example.com", "+27811111111", "hash", domain.RoleOwner, base)
		saved, err := s.Accounts().Save(ctx, a)
		require.NoError(t, err)
		require.NotEmpty(t, saved.ID)
		require.Equal(t, "alice@example.com", saved.Email)
		require.Equal(t, domain.RoleOwner, saved.Role)
		require.Nil(t, saved.Secret)
		require.True(t, saved.CreatedAt.Equal(base))

		got, err := s.Accounts().FindByEmail(ctx, " ALICE@example.com")
		require.NoError(t, err)
		require.Equal(t, saved.ID, got.ID)
		require.Equal(t, "+27811111111", got.PhoneNumber)
		require.Equal(t, "hash", got.PasswordHash)
		require.False(t, got.EmailVerified)
	})

	t.Run("unknown email is not found", func(t *testing.T) {
		s := open(t)

		_, err := s.Accounts().FindByEmail(context.Background(), "nobody@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.Accounts().FindBySecretToken(context.Background(), "nope")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		_, err := s.Accounts().Save(ctx, domain.NewAccount("dup@example.com", "", "h1", domain.RoleClient, base))
		require.NoError(t, err)

		_, err = s.Accounts().Save(ctx, domain.NewAccount("DUP@example.com", "", "h2", domain.RoleAgent, base))
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("secret token pair", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		saved, err := s.Accounts().Save(ctx, domain.NewAccount("tok@example.com", "", "h", domain.RoleClient, base))
		require.NoError(t, err)

		expires := base.Add(5 * time.Minute)
		saved, err = s.Accounts().Save(ctx, saved.WithSecretToken("token-1", expires, base.Add(time.Second)))
		require.NoError(t, err)
		require.NotNil(t, saved.Secret)
		require.True(t, saved.Secret.ExpiresAt.Equal(expires))
		require.True(t, saved.UpdatedAt.Equal(base.Add(time.Second)))

		got, err := s.Accounts().FindBySecretToken(ctx, "token-1")
		require.NoError(t, err)
		require.Equal(t, saved.ID, got.ID)
		require.Equal(t, "token-1", got.Secret.Value)

		// Consuming the token clears both halves of the pair.
		_, err = s.Accounts().Save(ctx, got.Verified(base.Add(2*time.Second)))
		require.NoError(t, err)

		_, err = s.Accounts().FindBySecretToken(ctx, "token-1")
		require.ErrorIs(t, err, store.ErrNotFound)

		got, err = s.Accounts().FindByEmail(ctx, "tok@example.com")
		require.NoError(t, err)
		require.True(t, got.EmailVerified)
		require.Nil(t, got.Secret)
	})

	t.Run("token values are unique", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		a, err := s.Accounts().Save(ctx, domain.NewAccount("one@example.com", "", "h", domain.RoleClient, base))
		require.NoError(t, err)
		b, err := s.Accounts().Save(ctx, domain.NewAccount("two@example.com", "", "h", domain.RoleClient, base))
		require.NoError(t, err)

		_, err = s.Accounts().Save(ctx, a.WithSecretToken("shared", base.Add(time.Minute), base))
		require.NoError(t, err)
		_, err = s.Accounts().Save(ctx, b.WithSecretToken("shared", base.Add(time.Minute), base))
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("update of unknown id", func(t *testing.T) {
		s := open(t)

		a := domain.NewAccount("ghost@example.com", "", "h", domain.RoleClient, base)
		a.ID = "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV"
		_, err := s.Accounts().Save(context.Background(), a)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("clear expired secret tokens", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		stale, err := s.Accounts().Save(ctx, domain.NewAccount("stale@example.com", "", "h", domain.RoleClient, base))
		require.NoError(t, err)
		fresh, err := s.Accounts().Save(ctx, domain.NewAccount("fresh@example.com", "", "h", domain.RoleClient, base))
		require.NoError(t, err)

		_, err = s.Accounts().Save(ctx, stale.WithSecretToken("stale-token", base.Add(-48*time.Hour), base))
		require.NoError(t, err)
		_, err = s.Accounts().Save(ctx, fresh.WithSecretToken("fresh-token", base.Add(time.Hour), base))
		require.NoError(t, err)

		n, err := s.Accounts().ClearExpiredSecretTokens(ctx, base.Add(-24*time.Hour))
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		_, err = s.Accounts().FindBySecretToken(ctx, "stale-token")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Accounts().FindBySecretToken(ctx, "fresh-token")
		require.NoError(t, err)
	})

	t.Run("with tx rolls back on error", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		boom := errors.New("boom")

		err := s.WithTx(ctx, func(tx store.Tx) error {
			_, err := tx.Accounts().Save(ctx, domain.NewAccount("rollback@example.com", "", "h", domain.RoleClient, base))
			require.NoError(t, err)
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = s.Accounts().FindByEmail(ctx, "rollback@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("with tx commits", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		err := s.WithTx(ctx, func(tx store.Tx) error {
			a, err := tx.Accounts().Save(ctx, domain.NewAccount("commit@example.com", "", "h", domain.RoleClient, base))
			if err != nil {
				return err
			}
			_, err = tx.Accounts().Save(ctx, a.WithSecretToken("commit-token", base.Add(time.Minute), base))
			return err
		})
		require.NoError(t, err)

		got, err := s.Accounts().FindBySecretToken(ctx, "commit-token")
		require.NoError(t, err)
		require.Equal(t, "commit@example.com", got.Email)
		require.NoError(t, s.Ping(ctx))
	})

	t.Run("concurrent consumers of one token", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		a, err := s.Accounts().Save(ctx, domain.NewAccount("race@example.com", "", "old", domain.RoleClient, base))
		require.NoError(t, err)
		_, err = s.Accounts().Save(ctx, a.WithSecretToken("race-token", base.Add(time.Hour), base))
		require.NoError(t, err)

		const workers = 16
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			consumed []string
			failures []error
		)
		start := make(chan struct{})
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				hash := fmt.Sprintf("hash-%d", i)
				err := s.WithTx(ctx, func(tx store.Tx) error {
					acc, err := tx.Accounts().FindBySecretToken(ctx, "race-token")
					if err != nil {
						return err
					}
					_, err = tx.Accounts().Save(ctx, acc.WithPasswordHash(hash, base.Add(time.Minute)))
					return err
				})

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failures = append(failures, err)
					return
				}
				consumed = append(consumed, hash)
			}(i)
		}
		close(start)
		wg.Wait()

		require.Len(t, consumed, 1, "exactly one transaction may consume the token")
		for _, err := range failures {
			require.ErrorIs(t, err, store.ErrNotFound)
		}

		got, err := s.Accounts().FindByEmail(ctx, "race@example.com")
		require.NoError(t, err)
		require.Nil(t, got.Secret)
		require.Equal(t, consumed[0], got.PasswordHash)
	})
}
