package identity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stshume/ohh-marketplace-auth-service/pkg/authsdk"
)

// TestPostgresBackedFlow runs the account flow against the postgres driver,
// including the unique email constraint.
func TestPostgresBackedFlow(t *testing.T) {
	baseURL, cleanup := setupIdentityWithPostgres(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	health, err := client.GetReadiness(t.Context())
	assertHealthy(t, health, err)

	email := uniqueEmail(t, "pg")
	registerAccount(t, client, email, "agent")

	_, err = client.Register(t.Context(), authsdk.RegisterRequest{
		Email:    email,
		Password: testPassword,
		Role:     "agent",
	})
	assertAPIError(t, err, authsdk.ErrDuplicateEmail)

	session := performLogin(t, client, email, testPassword)
	me, err := client.Me(t.Context(), session.Token)
	require.NoError(t, err)
	require.Equal(t, "AGENT", me.Role)

	_, err = client.Login(t.Context(), email, "wrong-password")
	assertAPIError(t, err, authsdk.ErrInvalidCredentials)

	_, err = client.ForgotPassword(t.Context(), email)
	require.NoError(t, err)
}
