package identity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stshume/ohh-marketplace-auth-service/pkg/authsdk"
)

// TestForgotPasswordDoesNotRevealAccounts checks that known and unknown
// emails get the same response.
func TestForgotPasswordDoesNotRevealAccounts(t *testing.T) {
	baseURL, cleanup := setupIdentityContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	email := uniqueEmail(t, "admin")
	registerAccount(t, client, email, "admin")

	known, err := client.ForgotPassword(t.Context(), email)
	require.NoError(t, err)

	unknown, err := client.ForgotPassword(t.Context(), uniqueEmail(t, "ghost"))
	require.NoError(t, err)

	require.Equal(t, known.Message, unknown.Message)
	require.NotEmpty(t, known.Message)
}

// TestTokensMustExist checks that made-up reset and verification tokens
// are rejected and leave the account usable.
func TestTokensMustExist(t *testing.T) {
	baseURL, cleanup := setupIdentityContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	email := uniqueEmail(t, "agent")
	registerAccount(t, client, email, "agent")

	_, err := client.ResetPassword(t.Context(), "made-up-token", "New-Password-3")
	assertAPIError(t, err, authsdk.ErrTokenNotFound)

	_, err = client.VerifyEmail(t.Context(), "made-up-token")
	assertAPIError(t, err, authsdk.ErrTokenNotFound)

	performLogin(t, client, email, testPassword)
}
