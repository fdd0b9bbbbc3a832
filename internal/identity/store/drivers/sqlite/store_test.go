package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/domain"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store/drivers/sqlite"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store/storetest"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestAccounts_Memory(t *testing.T) {
	storetest.RunAccounts(t, openMemory)
}

func TestAccounts_File(t *testing.T) {
	storetest.RunAccounts(t, func(t *testing.T) store.Store {
		s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "identity.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		require.NoError(t, s.ApplyMigrations())
		return s
	})
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	s := openMemory(t)
	require.NoError(t, s.ApplyMigrations())
}

func TestDSN(t *testing.T) {
	require.Equal(t, ":memory:?_pragma=foreign_keys(1)", sqlite.DSN(sqlite.MemoryPath))

	dsn := sqlite.DSN("/var/lib/identity.db")
	require.Contains(t, dsn, "file:/var/lib/identity.db?")
	require.Contains(t, dsn, "_txlock=immediate")
	require.Contains(t, dsn, "_pragma=journal_mode(WAL)")
}

func TestTxStore_NoNesting(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Tx(ctx)
		require.Error(t, err)
		require.Error(t, tx.WithTx(ctx, func(store.Tx) error { return nil }))
		return nil
	})
	require.NoError(t, err)

	_, err = s.Accounts().FindByEmail(ctx, domain.NormalizeEmail("none@x.com"))
	require.ErrorIs(t, err, store.ErrNotFound)
}
