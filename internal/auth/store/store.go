package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forumstack/auth-service/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// Column-specific variants of ErrAlreadyExists, so callers can tell a
	// duplicate email from a duplicate username. Both satisfy
	// errors.Is(err, ErrAlreadyExists).
	ErrEmailExists    = fmt.Errorf("%w: email", ErrAlreadyExists)
	ErrUsernameExists = fmt.Errorf("%w: username", ErrAlreadyExists)
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and to actively stop people from accidentally doing transactions
// within transactions.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	VerificationTokens() VerificationTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., consuming a
	// verification token and enabling the account).
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// This is the recommended way to handle transactions as it automatically
	// handles commit/rollback logic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// GetUserByEmail is used to detect duplicate registrations.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrEmailExists or ErrUsernameExists on a uniqueness conflict,
	// falling back to ErrAlreadyExists when the column cannot be determined.
	CreateUser(ctx context.Context, u domain.User) error

	// EnableUser flips enabled=1 and bumps updated_at. Called when the
	// email verification token is redeemed.
	EnableUser(ctx context.Context, userID string) error
}

type RefreshTokens interface {
	// SaveRefreshToken upserts the refresh token record for a user. A user
	// has at most one live refresh token; saving replaces any prior one.
	SaveRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token record by its fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// DeleteRefreshTokensForUser removes the user's refresh token. Idempotent;
	// no error if none exists.
	DeleteRefreshTokensForUser(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens removes records expired before now and
	// returns how many were deleted.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

type VerificationTokens interface {
	// CreateVerificationToken stores a new email verification record.
	CreateVerificationToken(ctx context.Context, t domain.VerificationToken) error

	// GetVerificationTokenByHash returns the record by its fingerprint.
	GetVerificationTokenByHash(ctx context.Context, hash string) (domain.VerificationToken, error)

	// DeleteVerificationToken removes a record by id. Tokens are single-use;
	// deletion happens in the same transaction that enables the account.
	DeleteVerificationToken(ctx context.Context, id string) error

	// DeleteExpiredVerificationTokens removes records expired before now and
	// returns how many were deleted.
	DeleteExpiredVerificationTokens(ctx context.Context, now time.Time) (int64, error)
}
