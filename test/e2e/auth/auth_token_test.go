package auth_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/forumstack/auth-service/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestTokenLifecycle(t *testing.T) {
	baseURL, container, cleanup := setupAuthContainer(t)
	defer cleanup()

	ctx := context.Background()
	client := authsdk.NewSDKClient(baseURL)

	req := authsdk.RegisterRequest{
		FirstName: "Carol",
		LastName:  "White",
		Email:     "carol@example.com",
		Username:  "carol",
		Password:  "S3curePassword!",
	}
	registerAndConfirm(t, client, container, req)

	auth, err := client.Authenticate(ctx, authsdk.LoginRequest{
		Username: req.Username,
		Password: req.Password,
	})
	require.NoError(t, err)
	assertAuthResponse(t, auth, req.Username)

	t.Run("refresh echoes the refresh token", func(t *testing.T) {
		refreshed, err := client.Refresh(ctx, auth.RefreshToken)
		require.NoError(t, err)
		assertAuthResponse(t, refreshed, req.Username)
		require.Equal(t, auth.RefreshToken, refreshed.RefreshToken,
			"Refresh token should be returned unchanged")
	})

	t.Run("refresh is repeatable", func(t *testing.T) {
		for range 3 {
			refreshed, err := client.Refresh(ctx, auth.RefreshToken)
			require.NoError(t, err)
			require.Equal(t, auth.RefreshToken, refreshed.RefreshToken)
		}
	})

	t.Run("re-login replaces the stored refresh token", func(t *testing.T) {
		second, err := client.Authenticate(ctx, authsdk.LoginRequest{
			Username: req.Username,
			Password: req.Password,
		})
		require.NoError(t, err)
		require.NotEqual(t, auth.RefreshToken, second.RefreshToken)

		// The earlier token is no longer recognised
		_, err = client.Refresh(ctx, auth.RefreshToken)
		assertAPIErrorStatus(t, err, http.StatusNotFound, "Replaced refresh token must 404")

		auth = second
	})

	t.Run("logout revokes the refresh token", func(t *testing.T) {
		require.NoError(t, client.Logout(ctx, auth.AccessToken))

		_, err := client.Refresh(ctx, auth.RefreshToken)
		assertAPIErrorStatus(t, err, http.StatusNotFound, "Refresh after logout must 404")
	})

	t.Run("logout is idempotent", func(t *testing.T) {
		require.NoError(t, client.Logout(ctx, auth.AccessToken))
	})
}

func TestAuthenticateRejections(t *testing.T) {
	baseURL, container, cleanup := setupAuthContainer(t)
	defer cleanup()

	ctx := context.Background()
	client := authsdk.NewSDKClient(baseURL)

	req := authsdk.RegisterRequest{
		FirstName: "Dave",
		LastName:  "Brown",
		Email:     "dave@example.com",
		Username:  "daveb",
		Password:  "S3curePassword!",
	}
	registerAndConfirm(t, client, container, req)

	t.Run("wrong password", func(t *testing.T) {
		_, err := client.Authenticate(ctx, authsdk.LoginRequest{
			Username: req.Username,
			Password: "not-the-password",
		})
		assertAPIErrorStatus(t, err, http.StatusUnauthorized, "Wrong password must be rejected")
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := client.Authenticate(ctx, authsdk.LoginRequest{
			Username: "ghost",
			Password: "whatever",
		})
		assertAPIErrorStatus(t, err, http.StatusUnauthorized, "Unknown user must be rejected")
	})

	t.Run("unknown refresh token", func(t *testing.T) {
		_, err := client.Refresh(ctx, "not-a-real-token")
		assertAPIErrorStatus(t, err, http.StatusNotFound, "Unknown refresh token must 404")
	})

	t.Run("logout without a token", func(t *testing.T) {
		err := client.Logout(ctx, "")
		assertAPIErrorStatus(t, err, http.StatusUnauthorized, "Logout requires a bearer token")
	})
}
