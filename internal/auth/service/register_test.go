package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/forumstack/auth-service/internal/auth/domain"
	"github.com/forumstack/auth-service/internal/auth/store"
	"github.com/forumstack/auth-service/pkg/cryptox"
	"github.com/forumstack/auth-service/pkg/idx"
	"github.com/stretchr/testify/require"
)

func validParams() RegisterParams {
	return RegisterParams{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
		Username:  "janedoe",
		Password:  "correct horse battery staple",
		Country:   "Australia",
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("creates a disabled user and emails a confirmation link", func(t *testing.T) {
		require.NoError(t, env.reg.Register(ctx, validParams()))

		u, err := env.store.Users().GetUserByUsername(ctx, "janedoe")
		require.NoError(t, err)
		require.False(t, u.Enabled)
		require.Equal(t, "jane@example.com", u.Email)
		require.NotEqual(t, "correct horse battery staple", u.PasswordHash)

		mail := env.mailer.last(t)
		require.Equal(t, "jane@example.com", mail.to)
		require.True(t, strings.HasPrefix(mail.confirmURL, "http://localhost:8080/auth/registrationConfirm?token="))
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		p := validParams()
		p.Username = "janedoe2"
		require.ErrorIs(t, env.reg.Register(ctx, p), ErrEmailInUse)
	})

	t.Run("duplicate username is rejected", func(t *testing.T) {
		p := validParams()
		p.Email = "jane2@example.com"
		require.ErrorIs(t, env.reg.Register(ctx, p), ErrUsernameTaken)
	})
}

func TestRegisterMailFailureKeepsUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.mailer.err = errors.New("relay down")

	err := env.reg.Register(ctx, validParams())
	require.ErrorIs(t, err, ErrVerificationSend)

	// The user record survives the mail failure.
	u, err := env.store.Users().GetUserByUsername(ctx, "janedoe")
	require.NoError(t, err)
	require.False(t, u.Enabled)

	// A repeat registration now reports the email as taken.
	require.ErrorIs(t, env.reg.Register(ctx, validParams()), ErrEmailInUse)
}

func TestConfirm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.reg.Register(ctx, validParams()))
	token := tokenFromConfirmURL(t, env.mailer.last(t).confirmURL)

	t.Run("enables the account", func(t *testing.T) {
		require.NoError(t, env.reg.Confirm(ctx, token))

		u, err := env.store.Users().GetUserByUsername(ctx, "janedoe")
		require.NoError(t, err)
		require.True(t, u.Enabled)
	})

	t.Run("tokens are single use", func(t *testing.T) {
		require.ErrorIs(t, env.reg.Confirm(ctx, token), ErrVerificationNotFound)
	})

	t.Run("unknown token", func(t *testing.T) {
		require.ErrorIs(t, env.reg.Confirm(ctx, "no-such-token"), ErrVerificationNotFound)
	})
}

func TestConfirmExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.reg.Register(ctx, validParams()))
	userID := env.userIDByUsername(t, "janedoe")

	// Plant an already-expired token for the same user.
	raw, err := cryptox.GenerateToken(cryptox.TokenSize128)
	require.NoError(t, err)
	require.NoError(t, env.store.VerificationTokens().CreateVerificationToken(ctx, domain.VerificationToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(raw),
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}))

	require.ErrorIs(t, env.reg.Confirm(ctx, raw), ErrVerificationExpired)

	// The account stays disabled and the expired row is left for the sweeper.
	u, err := env.store.Users().GetUserByID(ctx, userID)
	require.NoError(t, err)
	require.False(t, u.Enabled)

	_, err = env.store.VerificationTokens().GetVerificationTokenByHash(ctx, cryptox.FingerprintToken(raw))
	require.NoError(t, err)
	require.NotErrorIs(t, err, store.ErrNotFound)
}
