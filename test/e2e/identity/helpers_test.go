package identity_test

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/stshume/ohh-marketplace-auth-service/pkg/authsdk"
)

/*
 * Common constants and helper functions for identity service end-to-end
 * tests. This includes container setup, account operations, and assertions.
 */

const (
	testImageName = "ooh-identity-test:latest"

	testIssuer   = "login_app"
	testPassword = "Correct-Horse-1"
)

// TestMain builds the Docker image once before all tests and removes it
// after they complete.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		fmt.Fprintln(os.Stdout, "Skipping identity e2e tests in -short mode")
		os.Exit(0)
	}

	fmt.Fprintf(os.Stdout, "Building Identity Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Identity Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/identity/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// baseEnv is the service configuration shared by every e2e container.
func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_FILE":      "/tmp/identity.db",
		"AUTH_KEY_ID":        "ooh-identity-key-001",
		"AUTH_ISSUER":        testIssuer,
		"AUTH_ALGORITHM":     "EdDSA",
		"AUTH_NUM_KEYS":      "1",
		"PASSWORD_HASH_COST": "4",
		"NOTIFIER":           "log",
		"ENV":                "test",
		"LOG_LEVEL":          "info",
		"LOG_FORMAT":         "json",
	}
}

// setupIdentityContainer starts the identity service on SQLite and returns
// its base URL.
func setupIdentityContainer(t *testing.T) (string, func()) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          baseEnv(),
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	return startIdentity(t, req)
}

// setupIdentityWithPostgres starts postgres:16-alpine and the identity
// service on a shared network, with DATABASE_DRIVER=postgres.
func setupIdentityWithPostgres(t *testing.T) (string, func()) {
	t.Helper()
	ctx := context.Background()

	nw, err := network.New(ctx)
	require.NoError(t, err)

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     "identity",
				"POSTGRES_PASSWORD": "identity",
				"POSTGRES_DB":       "identity",
			},
			Networks:       []string{nw.Name},
			NetworkAliases: map[string][]string{nw.Name: {"postgres"}},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	env := baseEnv()
	env["DATABASE_DRIVER"] = "postgres"
	env["DB_HOST"] = "postgres"
	env["DB_PORT"] = "5432"
	env["DB_USER"] = "identity"
	env["DB_PASSWORD"] = "identity"
	env["DB_NAME"] = "identity"

	baseURL, stopIdentity := startIdentity(t, testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		Networks:     []string{nw.Name},
		WaitingFor: wait.ForHTTP("/readyz").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	})

	cleanup := func() {
		stopIdentity()
		if err := pg.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres: %v", err)
		}
		if err := nw.Remove(ctx); err != nil {
			t.Logf("failed to remove network: %v", err)
		}
	}

	return baseURL, cleanup
}

func startIdentity(t *testing.T, req testcontainers.ContainerRequest) (string, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, cleanup
}

// registerAccount creates an account and fails the test if it cannot.
func registerAccount(t *testing.T, client *authsdk.SDKClient, email, role string) *authsdk.UserResponse {
	t.Helper()

	user, err := client.Register(t.Context(), authsdk.RegisterRequest{
		Email:       email,
		PhoneNumber: "0821234567",
		Password:    testPassword,
		Role:        role,
	})
	require.NoError(t, err, "Register should succeed")
	require.NotNil(t, user)
	require.NotEmpty(t, user.ID, "User ID should not be empty")

	return user
}

// performLogin logs in and checks the session shape.
func performLogin(t *testing.T, client *authsdk.SDKClient, email, password string) *authsdk.LoginResponse {
	t.Helper()

	session, err := client.Login(t.Context(), email, password)
	require.NoError(t, err, "Login should succeed")
	assertSession(t, session)

	return session
}

// assertSession verifies a login response has all required fields.
func assertSession(t *testing.T, resp *authsdk.LoginResponse) {
	t.Helper()
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.Token, "Token should not be empty")
	require.Equal(t, "Bearer", resp.TokenType, "Token type should be Bearer")
	require.Positive(t, resp.ExpiresIn, "ExpiresIn should be positive")
}

// assertAPIError checks that err carries the given status and error code.
func assertAPIError(t *testing.T, err error, want *authsdk.APIError) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, want, "got: %v", err)
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}

// uniqueEmail keeps accounts from colliding across subtests.
func uniqueEmail(t *testing.T, prefix string) string {
	t.Helper()
	name := strings.NewReplacer("/", "-", " ", "-").Replace(strings.ToLower(t.Name()))
	return fmt.Sprintf("%s+%s-%d@example.com", prefix, name, time.Now().UnixNano())
}
