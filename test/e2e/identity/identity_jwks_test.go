package identity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stshume/ohh-marketplace-auth-service/pkg/authsdk"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/jwtx"
)

// TestJWKSVerification verifies that a session token issued at login can be
// checked offline against the published JWKS, and that its subject and
// scope are the account email and role.
func TestJWKSVerification(t *testing.T) {
	baseURL, cleanup := setupIdentityContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	email := uniqueEmail(t, "painter")
	registerAccount(t, client, email, "painter")
	session := performLogin(t, client, email, testPassword)

	jwksResp, err := client.GetJWKS(t.Context())
	require.NoError(t, err, "Should fetch JWKS successfully")
	require.NotEmpty(t, jwksResp.Keys, "JWKS should contain at least one key")
	require.Equal(t, "EdDSA", jwksResp.Keys[0].Alg)

	keySet := jwtx.NewKeySet()
	require.NoError(t, keySet.ResetFromJWKS(jwtx.JWKS(*jwksResp)))

	verifier := jwtx.NewVerifier(keySet, jwtx.VerifyOptions{Issuer: testIssuer})
	claims, err := verifier.Verify(session.Token)
	require.NoError(t, err, "Token should verify against the JWKS")

	require.Equal(t, email, claims.Subject)
	require.Equal(t, "PAINTER", claims.Scope)
	require.NotEmpty(t, claims.ID, "Token should carry a jti")
	require.EqualValues(t, session.ExpiresIn, claims.ExpiresAt.Unix()-claims.IssuedAt.Unix())
}
