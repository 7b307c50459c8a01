package auth_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"testing"
	"time"

	"github.com/forumstack/auth-service/pkg/authsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for auth service end-to-end tests.
 * This includes container setup, service operations, and assertions.
 */

const (
	testImageName = "forumstack-auth-test:latest"

	testIssuer = "forumstack-auth"
)

// TestMain manages the test lifecycle, builds the Docker image once before
// all tests and cleans it up after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Auth Service Docker image...")

	// Build the Docker image once before all tests
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	// Run all tests
	exitCode := m.Run()

	// Clean up the Docker image after all tests complete
	fmt.Fprintf(os.Stdout, "Cleaning up Auth Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

// buildDockerImage builds the test Docker image if it doesn't exist.
func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/auth/Dockerfile",
		"../../../")
	cmd.Dir = "." // Ensure we're in the test directory
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

// cleanupDockerImage removes the test Docker image.
func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// setupAuthContainer starts the auth service in a container and returns the
// base URL plus the container handle so tests can scrape its logs for
// verification links (the service runs with MAIL_MODE=log).
func setupAuthContainer(t *testing.T) (string, testcontainers.Container, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env: map[string]string{
			"AUTH_DATABASE_FILE": "/tmp/auth.db",
			"AUTH_PEPPER_FILE":   "/tmp/pepper",
			"AUTH_ISSUER":        testIssuer,
			"MAIL_MODE":          "log",
			"ENV":                "test",
			"LOG_LEVEL":          "info",
			"LOG_FORMAT":         "json",
			// Increase rate limits for E2E tests to prevent test failures
			// Tests often make many rapid requests which would otherwise hit the strict production limits
			"RATELIMIT_STRICT_REQUESTS":   "1000",
			"RATELIMIT_STRICT_WINDOW_SEC": "60",
			"RATELIMIT_STRICT_BURST":      "1000",
			"RATELIMIT_MODERATE_REQUESTS": "1000",
			"RATELIMIT_MODERATE_BURST":    "1000",
		},
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	// Get the mapped port
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

	return baseURL, container, cleanup
}

// setupAuthContainerWithDefaultRateLimits starts the auth service with DEFAULT rate limits.
// This is specifically for testing that rate limiting actually works.
// Most tests should use setupAuthContainer() which has relaxed limits to prevent test failures.
func setupAuthContainerWithDefaultRateLimits(t *testing.T) (string, func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env: map[string]string{
			"AUTH_DATABASE_FILE": "/tmp/auth.db",
			"AUTH_PEPPER_FILE":   "/tmp/pepper",
			"AUTH_ISSUER":        testIssuer,
			"MAIL_MODE":          "log",
			"ENV":                "test",
			"LOG_LEVEL":          "info",
			"LOG_FORMAT":         "json",
			// NOTE: No rate limit overrides - using production defaults for rate limit testing
		},
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	// Get the mapped port
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

// verificationTokenFromLogs scrapes the container log for the verification
// link emailed to the given address and returns the embedded token.
// The log mailer writes one structured log line per message with the
// recipient and the full confirmation URL.
func verificationTokenFromLogs(t *testing.T, container testcontainers.Container, email string) string {
	t.Helper()
	ctx := context.Background()

	pattern := regexp.MustCompile(
		regexp.QuoteMeta(email) + `.*?registrationConfirm\?token=([A-Za-z0-9_\-]+)`)

	// The log line is written asynchronously with the register response,
	// so poll briefly instead of reading once.
	deadline := time.Now().Add(10 * time.Second)
	for {
		reader, err := container.Logs(ctx)
		require.NoError(t, err)
		logs, err := io.ReadAll(reader)
		reader.Close()
		require.NoError(t, err)

		matches := pattern.FindAllSubmatch(logs, -1)
		if len(matches) > 0 {
			// Use the most recent link for this address
			return string(matches[len(matches)-1][1])
		}

		if time.Now().After(deadline) {
			t.Fatalf("verification link for %s not found in container logs", email)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

// registerAndConfirm registers an account and activates it via the emailed
// verification link.
func registerAndConfirm(
	t *testing.T,
	client *authsdk.SDKClient,
	container testcontainers.Container,
	req authsdk.RegisterRequest,
) {
	t.Helper()
	ctx := context.Background()

	_, err := client.Register(ctx, req)
	require.NoError(t, err, "Register should succeed")

	token := verificationTokenFromLogs(t, container, req.Email)

	_, err = client.ConfirmRegistration(ctx, token)
	require.NoError(t, err, "Confirmation should succeed")
}

// assertAuthResponse verifies an authentication response has all required fields.
func assertAuthResponse(t *testing.T, resp *authsdk.AuthResponse, username string) {
	t.Helper()
	require.NotNil(t, resp)
	require.Equal(t, username, resp.Username)
	require.NotEmpty(t, resp.AccessToken, "Access token should not be empty")
	require.NotEmpty(t, resp.RefreshToken, "Refresh token should not be empty")
}

// assertAPIErrorStatus checks that an error is an APIError with the given status.
func assertAPIErrorStatus(t *testing.T, err error, status int, context string) {
	t.Helper()
	require.Error(t, err, context)
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr, context)
	require.Equal(t, status, apiErr.StatusCode, context)
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
