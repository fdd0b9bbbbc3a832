package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store/storetest"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a throwaway postgres:16-alpine and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container test skipped in -short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "identity",
			"POSTGRES_PASSWORD": "identity",
			"POSTGRES_DB":       "identity",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return Options{
		Host:     host,
		Port:     port.Int(),
		User:     "identity",
		Password: "identity",
		DBName:   "identity",
	}.URL()
}

func TestAccounts_Postgres(t *testing.T) {
	dsn := startPostgres(t)

	storetest.RunAccounts(t, func(t *testing.T) store.Store {
		s, err := NewStore(context.Background(), dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		require.NoError(t, s.ApplyMigrations())
		_, err = s.db.ExecContext(context.Background(), `TRUNCATE accounts`)
		require.NoError(t, err)
		return s
	})
}

func TestOptionsURL(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{
			name: "default sslmode",
			opts: Options{Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "identity"},
			want: "postgres://u:p%40ss@db:5432/identity?sslmode=disable",
		},
		{
			name: "explicit sslmode",
			opts: Options{Host: "db", Port: 6543, User: "u", Password: "p", DBName: "x", SSLMode: "require"},
			want: "postgres://u:p@db:6543/x?sslmode=require",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.opts.URL())
		})
	}
}

func TestMapConstraint(t *testing.T) {
	require.Nil(t, mapConstraint(nil))
	other := fmt.Errorf("boom")
	require.Equal(t, other, mapConstraint(other))
}
