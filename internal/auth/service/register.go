package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/forumstack/auth-service/internal/auth/domain"
	"github.com/forumstack/auth-service/internal/auth/mailer"
	"github.com/forumstack/auth-service/internal/auth/store"
	"github.com/forumstack/auth-service/pkg/cryptox"
	"github.com/forumstack/auth-service/pkg/idx"
	"github.com/forumstack/auth-service/pkg/slogx"
)

var (
	ErrEmailInUse           = errors.New("email_already_in_use")
	ErrUsernameTaken        = errors.New("username_not_available")
	ErrVerificationNotFound = errors.New("verification_token_not_found")
	ErrVerificationExpired  = errors.New("verification_token_expired")
	ErrVerificationSend     = errors.New("verification_email_send_failed")
)

// DefaultVerificationTTL is how long an email verification token stays
// redeemable.
const DefaultVerificationTTL = 24 * time.Hour

// RegisterParams carries the validated registration input.
type RegisterParams struct {
	FirstName string
	LastName  string
	Email     string
	Username  string
	Password  string
	Country   string
}

// RegistrationService creates disabled accounts and walks them through email
// verification.
type RegistrationService struct {
	Store           store.Store
	Mailer          mailer.Notifier
	BaseURL         string // public base URL used in confirmation links
	VerificationTTL time.Duration
}

// Register creates a new disabled user and emails a verification link.
// If the email cannot be sent the user record is kept anyway and
// ErrVerificationSend is returned; a repeat registration will then report the
// email as in use. This partial-success state is deliberate, the alternative
// of rolling back would let a flaky mail relay block signups entirely.
func (s *RegistrationService) Register(ctx context.Context, p RegisterParams) error {
	l := slogx.FromContext(ctx)

	if _, err := s.Store.Users().GetUserByEmail(ctx, p.Email); err == nil {
		return ErrEmailInUse
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if _, err := s.Store.Users().GetUserByUsername(ctx, p.Username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return err
	}

	user := domain.User{
		ID:           idx.New().String(),
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Email:        p.Email,
		Username:     p.Username,
		PasswordHash: hash,
		Country:      p.Country,
		Enabled:      false,
	}

	rawToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return err
	}

	ttl := s.VerificationTTL
	if ttl <= 0 {
		ttl = DefaultVerificationTTL
	}

	verification := domain.VerificationToken{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(rawToken),
		ExpiresAt: time.Now().UTC().Add(ttl),
	}

	// User and verification token land together or not at all.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			// Lost a race with a concurrent registration; report the
			// column the insert actually collided on.
			switch {
			case errors.Is(err, store.ErrUsernameExists):
				return ErrUsernameTaken
			case errors.Is(err, store.ErrAlreadyExists):
				return ErrEmailInUse
			}
			return err
		}
		return tx.VerificationTokens().CreateVerificationToken(ctx, verification)
	})
	if err != nil {
		return err
	}

	confirmURL := s.BaseURL + "/auth/registrationConfirm?token=" + url.QueryEscape(rawToken)
	if err := s.Mailer.SendVerificationEmail(ctx, user.Email, confirmURL); err != nil {
		// The account stays; see the method comment.
		l.Error("verification email send failed", "user_id", user.ID, "err", err)
		return ErrVerificationSend
	}

	l.Info("user registered", "user_id", user.ID, "username", user.Username)
	return nil
}

// Confirm redeems a verification token and enables the account. The token
// deletion and the enable happen in one transaction, so a token can never be
// consumed without the account coming up enabled. Expired tokens are refused
// and left for the sweeper; the registrant must register again.
func (s *RegistrationService) Confirm(ctx context.Context, rawToken string) error {
	l := slogx.FromContext(ctx)
	fp := cryptox.FingerprintToken(rawToken)

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		v, err := tx.VerificationTokens().GetVerificationTokenByHash(ctx, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrVerificationNotFound
			}
			return err
		}

		if time.Now().UTC().After(v.ExpiresAt) {
			return ErrVerificationExpired
		}

		if err := tx.VerificationTokens().DeleteVerificationToken(ctx, v.ID); err != nil {
			return err
		}

		if err := tx.Users().EnableUser(ctx, v.UserID); err != nil {
			return err
		}

		l.Info("registration confirmed", "user_id", v.UserID)
		return nil
	})
}
