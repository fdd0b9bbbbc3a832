package domain_test

import (
	"testing"
	"time"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/domain"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    domain.Role
		wantErr bool
	}{
		{"ADMIN", domain.RoleAdmin, false},
		{"client", domain.RoleClient, false},
		{" Flighter ", domain.RoleFlighter, false},
		{"SUPERUSER", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := domain.ParseRole(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidRole)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	require.Len(t, domain.Roles(), 6)
	for _, r := range domain.Roles() {
		require.True(t, r.Valid())
	}
}

func TestAccountTransitions(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := domain.NewAccount("  A@X.com ", "0811111111", "hash", domain.RoleClient, created)

	require.Equal(t, "a@x.com", a.Email)
	require.False(t, a.EmailVerified)
	require.False(t, a.HasPendingToken())
	require.Equal(t, created, a.CreatedAt)
	require.Equal(t, created, a.UpdatedAt)

	later := created.Add(time.Minute)
	pending := a.WithSecretToken("tok", later.Add(5*time.Minute), later)
	require.True(t, pending.HasPendingToken())
	require.Equal(t, "tok", pending.Secret.Value)
	require.Equal(t, later, pending.UpdatedAt)
	require.False(t, a.HasPendingToken(), "original value must be untouched")

	require.False(t, pending.Secret.Expired(later))
	require.True(t, pending.Secret.Expired(later.Add(6*time.Minute)))

	reset := pending.WithPasswordHash("new-hash", later.Add(time.Minute))
	require.Equal(t, "new-hash", reset.PasswordHash)
	require.Nil(t, reset.Secret)
	require.Equal(t, "hash", pending.PasswordHash)

	verified := pending.Verified(later.Add(2 * time.Minute))
	require.True(t, verified.EmailVerified)
	require.Nil(t, verified.Secret)
	require.Equal(t, later.Add(2*time.Minute), verified.UpdatedAt)
}
