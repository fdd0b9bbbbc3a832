package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/cryptox"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newEdDSASigner(t *testing.T, kid string) jwtx.Signer {
	t.Helper()
	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	s, err := jwtx.NewSignerFromPEM(jwtx.AlgorithmEdDSA, kid, pemKey)
	require.NoError(t, err)
	return s
}

func TestVerifier(t *testing.T) {
	signer := newEdDSASigner(t, "k1")
	ks := jwtx.NewKeySet()
	require.NoError(t, ks.AddSigner(signer))

	v := jwtx.NewVerifier(ks, jwtx.VerifyOptions{Issuer: "login_app"})
	now := time.Now().UTC()

	t.Run("valid", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewSessionClaims("login_app", "a@x.com", "AGENT", time.Minute, now))
		require.NoError(t, err)

		c, err := v.Verify(token)
		require.NoError(t, err)
		require.Equal(t, "a@x.com", c.Subject)
		require.Equal(t, "AGENT", c.Scope)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewSessionClaims("someone_else", "a@x.com", "AGENT", time.Minute, now))
		require.NoError(t, err)

		_, err = v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewSessionClaims("login_app", "a@x.com", "AGENT", time.Minute, now.Add(-time.Hour)))
		require.NoError(t, err)

		_, err = v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("unknown kid", func(t *testing.T) {
		other := newEdDSASigner(t, "k2")
		token, err := other.Sign(jwtx.NewSessionClaims("login_app", "a@x.com", "AGENT", time.Minute, now))
		require.NoError(t, err)

		_, err = v.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("tampered signature", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewSessionClaims("login_app", "a@x.com", "AGENT", time.Minute, now))
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		imposter, err := newEdDSASigner(t, "k1").Sign(jwtx.NewSessionClaims("login_app", "a@x.com", "AGENT", time.Minute, now))
		require.NoError(t, err)
		parts[2] = strings.Split(imposter, ".")[2]

		_, err = v.Verify(strings.Join(parts, "."))
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := v.Verify("not.a.jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestVerifier_AlgorithmMismatch(t *testing.T) {
	secret := []byte(strings.Repeat("x", 32))
	hs, err := jwtx.NewSignerHS256("shared", secret)
	require.NoError(t, err)

	ks := jwtx.NewKeySet()
	require.NoError(t, ks.AddSigner(newEdDSASigner(t, "shared-ed")))
	v := jwtx.NewVerifier(ks, jwtx.VerifyOptions{})

	// An HMAC token claiming an asymmetric kid must not verify.
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtx.NewSessionClaims("login_app", "a@x.com", "ADMIN", time.Minute, time.Now()))
	tok.Header["kid"] = "shared-ed"
	raw, err := tok.SignedString(secret)
	require.NoError(t, err)

	_, err = v.Verify(raw)
	require.ErrorIs(t, err, jwtx.ErrAlgMismatch)

	_, ok := hs.PublicJWK()
	require.False(t, ok)
}

func TestKeySet_ResetFromJWKS(t *testing.T) {
	signer := newEdDSASigner(t, "published")

	issuing := jwtx.NewKeySet()
	require.NoError(t, issuing.AddSigner(signer))

	// A resource server rebuilds its set from the published document.
	remote := jwtx.NewKeySet()
	require.False(t, remote.IsReady())
	require.NoError(t, remote.ResetFromJWKS(issuing.PublicJWKS()))
	require.True(t, remote.IsReady())

	token, err := signer.Sign(jwtx.NewSessionClaims("login_app", "a@x.com", "PAINTER", time.Minute, time.Now()))
	require.NoError(t, err)

	c, err := jwtx.NewVerifier(remote, jwtx.VerifyOptions{Issuer: "login_app"}).Verify(token)
	require.NoError(t, err)
	require.Equal(t, "PAINTER", c.Scope)

	_, err = remote.Get("missing")
	require.ErrorIs(t, err, jwtx.ErrNoKey)
}
