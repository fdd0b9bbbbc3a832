package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store/drivers/sqlite"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/authsdk"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/jwtx"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	t.Setenv("ENV", "test")

	cfg := LoadConfig()
	cfg.LogLevel = "error"
	cfg.Algorithm = jwtx.AlgorithmEdDSA
	cfg.DatabaseFile = sqlite.MemoryPath
	cfg.PasswordHashCost = 4
	return cfg
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notifier = "fax"

	_, err := New(context.Background(), cfg)
	require.ErrorContains(t, err, "invalid configuration")
}

func TestNew_SigningKeyFileMissing(t *testing.T) {
	cfg := testConfig(t)
	cfg.SigningKeyFile = "/does/not/exist.pem"

	_, err := New(context.Background(), cfg)
	require.ErrorContains(t, err, "signing key")
}

func TestApplication_RegisterAndLogin(t *testing.T) {
	application, err := New(context.Background(), testConfig(t))
	require.NoError(t, err)
	application.dispatcher.Start()
	t.Cleanup(func() { require.NoError(t, application.Shutdown()) })

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(srv.Close)

	post := func(path string, body any) *http.Response {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(raw))
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	resp := post("/user/register", authsdk.RegisterRequest{
		Email:    "jane@example.com",
		Password: "hunter22",
		Role:     "client",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = post("/user/login", authsdk.LoginRequest{Email: "jane@example.com", Password: "hunter22"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session authsdk.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	require.Equal(t, "Bearer", session.TokenType)
	require.EqualValues(t, 300, session.ExpiresIn)

	claims, err := application.keyManager.Verifier.Verify(session.Token)
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", claims.Subject)
	require.Equal(t, "CLIENT", claims.Scope)
}
