package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/notify"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/service"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store"
	"github.com/stshume/ohh-marketplace-auth-service/internal/identity/store/drivers/sqlite"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/authsdk"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/cryptox"
	"github.com/stshume/ohh-marketplace-auth-service/pkg/jwtx"
)

type mailbox struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (m *mailbox) Enqueue(msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *mailbox) token(t *testing.T, kind notify.Kind) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.msgs) - 1; i >= 0; i-- {
		if m.msgs[i].Kind == kind {
			_, tok, ok := strings.Cut(m.msgs[i].Link, "token=")
			require.True(t, ok)
			return tok
		}
	}
	t.Fatalf("no %s message", kind)
	return ""
}

type testServer struct {
	handler http.Handler
	store   store.Store
	keys    *jwtx.KeyManager
	mail    *mailbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmES256, Issuer: service.DefaultIssuer})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mail := &mailbox{}

	r := NewRouter(km.KeySet, km.Verifier, "test", st, logger)
	r.Credentials = &service.CredentialService{
		Store:    st,
		Hasher:   cryptox.NewBcryptHasher(bcrypt.MinCost),
		Sessions: &service.SessionIssuer{KeyManager: km, TTL: service.DefaultSessionTokenTTL},
		Mailer:   mail,
		Config:   service.Config{NotifierBaseURL: "http://identity.test"},
	}
	r.ApplyRoutes()

	return &testServer{handler: r, store: st, keys: km, mail: mail}
}

func (s *testServer) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func register(t *testing.T, s *testServer, email, password, role string) authsdk.UserResponse {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/user/register", authsdk.RegisterRequest{
		Email:       email,
		PhoneNumber: "0811111111",
		Password:    password,
		Role:        role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authsdk.RegisterResponse](t, rec).User
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	user := register(t, s, "Jane@Example.com", "pw1", "client")
	require.NotEmpty(t, user.ID)
	require.Equal(t, "jane@example.com", user.Email)
	require.Equal(t, "+27811111111", user.PhoneNumber)
	require.Equal(t, "CLIENT", user.Role)
	require.False(t, user.EmailVerified)

	t.Run("duplicate is a conflict", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/user/register", authsdk.RegisterRequest{
			Email: "jane@example.com", Password: "pw2", Role: "OWNER",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
		body := decode[authsdk.ErrorResponse](t, rec)
		require.Equal(t, authsdk.ErrorResponse{Error: "duplicate_email", ErrorDescription: "Email already exists !"}, body)
	})

	t.Run("body never leaks secrets", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/user/register", authsdk.RegisterRequest{
			Email: "leak@example.com", Password: "pw", Role: "AGENT",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
		raw := rec.Body.String()
		require.NotContains(t, raw, "password")
		require.NotContains(t, raw, s.mail.token(t, notify.KindEmailVerification))
	})
}

func TestRegister_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		req  authsdk.RegisterRequest
		want string
	}{
		{"missing email", authsdk.RegisterRequest{Password: "pw", Role: "CLIENT"}, "email"},
		{"bad email", authsdk.RegisterRequest{Email: "not-an-email", Password: "pw", Role: "CLIENT"}, "email"},
		{"missing password", authsdk.RegisterRequest{Email: "a@x.com", Role: "CLIENT"}, "password"},
		{"long password", authsdk.RegisterRequest{Email: "a@x.com", Password: strings.Repeat("p", 73), Role: "CLIENT"}, "password"},
		{"unknown role", authsdk.RegisterRequest{Email: "a@x.com", Password: "pw", Role: "SUPERUSER"}, "role"},
		{"bad phone", authsdk.RegisterRequest{Email: "a@x.com", PhoneNumber: "12", Password: "pw", Role: "CLIENT"}, "phone_number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/user/register", tt.req)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := decode[authsdk.ErrorResponse](t, rec)
			require.Equal(t, "invalid_request", body.Error)
			require.Contains(t, body.ErrorDescription, tt.want)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/user/register", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginAndMe(t *testing.T) {
	s := newTestServer(t)
	register(t, s, "a@x.com", "pw1", "PAINTER")

	rec := s.do(t, http.MethodPost, "/user/login", authsdk.LoginRequest{Email: "a@x.com", Password: "pw1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	login := decode[authsdk.LoginResponse](t, rec)
	require.Equal(t, "Bearer", login.TokenType)
	require.Equal(t, int64(300), login.ExpiresIn)

	rec = s.do(t, http.MethodGet, "/user/me", nil, "Authorization", "Bearer "+login.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, authsdk.MeResponse{Email: "a@x.com", Role: "PAINTER"}, decode[authsdk.MeResponse](t, rec))

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		wrong := s.do(t, http.MethodPost, "/user/login", authsdk.LoginRequest{Email: "a@x.com", Password: "nope"})
		unknown := s.do(t, http.MethodPost, "/user/login", authsdk.LoginRequest{Email: "b@x.com", Password: "pw1"})

		require.Equal(t, http.StatusUnauthorized, wrong.Code)
		require.Equal(t, http.StatusUnauthorized, unknown.Code)
		require.Equal(t, wrong.Body.String(), unknown.Body.String())
	})

	t.Run("me requires a token", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/user/me", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = s.do(t, http.MethodGet, "/user/me", nil, "Authorization", "Bearer garbage")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("me rejects unknown roles", func(t *testing.T) {
		claims := jwtx.NewSessionClaims(service.DefaultIssuer, "a@x.com", "ROOT", time.Minute, time.Now())
		token, err := s.keys.Sign(claims)
		require.NoError(t, err)

		rec := s.do(t, http.MethodGet, "/user/me", nil, "Authorization", "Bearer "+token)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestLogin_PasswordBeyond72BytesIsRejected(t *testing.T) {
	s := newTestServer(t)
	password := strings.Repeat("z", 72)
	register(t, s, "max@x.com", password, "CLIENT")

	rec := s.do(t, http.MethodPost, "/user/login", authsdk.LoginRequest{Email: "max@x.com", Password: password + "suffix"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid_credentials", decode[authsdk.ErrorResponse](t, rec).Error)

	rec = s.do(t, http.MethodPost, "/user/login", authsdk.LoginRequest{Email: "max@x.com", Password: password})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"duplicate", service.ErrDuplicateEmail, http.StatusConflict, "duplicate_email"},
		{"credentials", service.ErrUnknownEmail, http.StatusUnauthorized, "invalid_credentials"},
		{"not found", service.ErrVerificationTokenNotFound, http.StatusBadRequest, "token_not_found"},
		{"expired", service.ErrTokenExpired, http.StatusBadRequest, "token_expired"},
		{"password too long", service.ErrPasswordTooLong, http.StatusBadRequest, "invalid_request"},
		{"infrastructure", service.ErrInfrastructure, http.StatusInternalServerError, "server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(context.Background(), rec, tt.err)

			require.Equal(t, tt.status, rec.Code)
			require.Equal(t, tt.code, decode[authsdk.ErrorResponse](t, rec).Error)
		})
	}
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t)
	register(t, s, "a@x.com", "old", "OWNER")

	rec := s.do(t, http.MethodPost, "/user/forgot-password", authsdk.ForgotPasswordRequest{Email: "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, msgResetLinkSent, decode[authsdk.MessageResponse](t, rec).Message)

	token := s.mail.token(t, notify.KindPasswordReset)

	rec = s.do(t, http.MethodPost, "/user/reset-password", authsdk.ResetPasswordRequest{Token: token, Password: "new"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, msgCredentialsUpdated, decode[authsdk.MessageResponse](t, rec).Message)

	rec = s.do(t, http.MethodPost, "/user/login", authsdk.LoginRequest{Email: "a@x.com", Password: "new"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/user/reset-password", authsdk.ResetPasswordRequest{Token: token, Password: "again"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, authsdk.ErrorResponse{Error: "token_not_found", ErrorDescription: "User not found"}, decode[authsdk.ErrorResponse](t, rec))
}

func TestForgotPassword_UnknownEmailIsHidden(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/user/forgot-password", authsdk.ForgotPasswordRequest{Email: "ghost@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, msgResetLinkSent, decode[authsdk.MessageResponse](t, rec).Message)
	require.Empty(t, s.mail.msgs)
}

func TestResetPassword_Expired(t *testing.T) {
	s := newTestServer(t)
	register(t, s, "a@x.com", "old", "OWNER")

	acc, err := s.store.Accounts().FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	past := time.Now().Add(-time.Minute)
	_, err = s.store.Accounts().Save(context.Background(), acc.WithSecretToken("stale", past, past))
	require.NoError(t, err)

	rec := s.do(t, http.MethodPost, "/user/reset-password", authsdk.ResetPasswordRequest{Token: "stale", Password: "new"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "token_expired", decode[authsdk.ErrorResponse](t, rec).Error)
}

func TestVerifyEmail(t *testing.T) {
	tests := []struct {
		name string
		path func(token string) string
	}{
		{"path segment", func(tok string) string { return "/user/verify-email/" + tok }},
		{"query parameter", func(tok string) string { return "/user/verify-email?token=" + tok }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			register(t, s, "a@x.com", "pw", "AGENT")
			token := s.mail.token(t, notify.KindEmailVerification)

			rec := s.do(t, http.MethodGet, tt.path(token), nil)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Equal(t, msgEmailVerified, decode[authsdk.MessageResponse](t, rec).Message)

			rec = s.do(t, http.MethodGet, tt.path(token), nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, "User not found.", decode[authsdk.ErrorResponse](t, rec).ErrorDescription)
		})
	}

	t.Run("missing token", func(t *testing.T) {
		s := newTestServer(t)
		rec := s.do(t, http.MethodGet, "/user/verify-email", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSystemEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/livez", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[authsdk.HealthResponse](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ready := decode[authsdk.HealthResponse](t, rec)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Signer)

	rec = s.do(t, http.MethodGet, "/.well-known/jwks.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	jwks := decode[jwtx.JWKS](t, rec)
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "ES256", jwks.Keys[0].Alg)

	require.NoError(t, s.store.Close())
	rec = s.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDIsEchoedInLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmEdDSA, Issuer: "test"})
	require.NoError(t, err)
	r := NewRouter(km.KeySet, km.Verifier, "test", nil, logger)
	r.ApplyRoutes()

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set("X-Request-ID", "req-123")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Contains(t, buf.String(), `"req_id":"req-123"`)
	require.Contains(t, buf.String(), `"status":200`)
}
