package service

import (
	"context"
	"errors"
	"time"

	"github.com/forumstack/auth-service/internal/auth/domain"
	"github.com/forumstack/auth-service/internal/auth/store"
	"github.com/forumstack/auth-service/pkg/cryptox"
	"github.com/forumstack/auth-service/pkg/idx"
	"github.com/forumstack/auth-service/pkg/jwtx"
	"github.com/forumstack/auth-service/pkg/slogx"
)

var (
	ErrRefreshNotFound = errors.New("refresh_token_not_found")
	ErrRefreshInvalid  = errors.New("refresh_token_invalid")
)

// TokenService issues and refreshes token pairs. Access and refresh tokens
// are both JWTs signed with the service key; refresh tokens are additionally
// recorded by fingerprint so logout can revoke them.
type TokenService struct {
	Credentials *CredentialService
	Signer      jwtx.Signer
	Verifier    jwtx.Verifier
	Store       store.Store
	Issuer      string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
}

// Authenticate performs a full login: verify credentials, mint an access and
// refresh token, and persist the refresh token record. On any credential
// failure nothing is issued and nothing is written.
func (s *TokenService) Authenticate(ctx context.Context, username, password string) (*domain.AuthResult, error) {
	now := time.Now().UTC()

	u, err := s.Credentials.VerifyCredentials(ctx, username, password)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.Signer.Sign(jwtx.NewClaims(u.Email, u.ID, u.Username, s.AccessTTL, s.Issuer, now))
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.Signer.Sign(jwtx.NewClaims(u.Email, u.ID, u.Username, s.RefreshTTL, s.Issuer, now))
	if err != nil {
		return nil, err
	}

	if err := s.saveRefresh(ctx, u.ID, refreshToken); err != nil {
		return nil, err
	}

	return &domain.AuthResult{
		Username:     u.Username,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh mints a new access token against a stored refresh token.
// The refresh token is looked up by fingerprint; a missing record means it
// was never issued, revoked by logout, or already swept. A present record
// whose JWT fails verification (expired, tampered, wrong owner) yields
// ErrRefreshInvalid and is left in place for the sweeper, keeping this
// operation side-effect-free on failure. The refresh token is not rotated;
// the same string is echoed back.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	l := slogx.FromContext(ctx)

	fp := cryptox.FingerprintToken(refreshToken)
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRefreshNotFound
		}
		return nil, err
	}

	u, err := s.Store.Users().GetUserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Owner deleted; the CASCADE should have removed the row, but
			// treat a stale record the same as an invalid token.
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}

	claims, err := s.Verifier.Verify(refreshToken)
	if err != nil {
		l.Info("refresh token verification failed", "user_id", u.ID, "err", err)
		return nil, ErrRefreshInvalid
	}
	if err := claims.ValidateSubject(u.Email); err != nil {
		return nil, ErrRefreshInvalid
	}

	accessToken, err := s.Signer.Sign(jwtx.NewClaims(u.Email, u.ID, u.Username, s.AccessTTL, s.Issuer, time.Now().UTC()))
	if err != nil {
		return nil, err
	}

	return &domain.AuthResult{
		Username:     u.Username,
		AccessToken:  accessToken,
		RefreshToken: refreshToken, // echoed unchanged, not rotated
	}, nil
}

// Logout revokes the user's refresh token. Idempotent; succeeds even when no
// token was stored. Outstanding access tokens stay valid until they expire,
// since resource services verify them statelessly.
func (s *TokenService) Logout(ctx context.Context, userID string) error {
	return s.Store.RefreshTokens().DeleteRefreshTokensForUser(ctx, userID)
}

// saveRefresh records the refresh token fingerprint. The expiry is read back
// out of the signed token so the stored record and the JWT can never
// disagree about when it lapses.
func (s *TokenService) saveRefresh(ctx context.Context, userID, refreshToken string) error {
	expiresAt, err := jwtx.ExtractExpiration(refreshToken)
	if err != nil {
		return err
	}

	return s.Store.RefreshTokens().SaveRefreshToken(ctx, domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: cryptox.FingerprintToken(refreshToken),
		ExpiresAt: expiresAt,
	})
}
