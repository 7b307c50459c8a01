package service

import (
	"context"
	"errors"

	"github.com/forumstack/auth-service/internal/auth/domain"
	"github.com/forumstack/auth-service/internal/auth/store"
	"github.com/forumstack/auth-service/pkg/cryptox"
	"github.com/forumstack/auth-service/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrAccountDisabled    = errors.New("account_disabled")
)

// CredentialService resolves a username/password pair to a user record.
// It is the single gate for password checks; nothing else in the codebase
// touches password hashes.
type CredentialService struct {
	Store store.Store
}

// VerifyCredentials authenticates a username/password pair.
// Unknown usernames and wrong passwords both return ErrInvalidCredentials so
// the response does not reveal which one failed. A correct password against a
// not-yet-confirmed account returns ErrAccountDisabled.
func (s *CredentialService) VerifyCredentials(ctx context.Context, username, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		l.Info("password verification failed", "username", username)
		return domain.User{}, ErrInvalidCredentials
	}

	if !u.Enabled {
		l.Info("login attempt on disabled account", "username", username)
		return domain.User{}, ErrAccountDisabled
	}

	return u, nil
}
