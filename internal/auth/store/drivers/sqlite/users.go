package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/forumstack/auth-service/internal/auth/domain"
	"github.com/forumstack/auth-service/internal/auth/store"
)

type usersRepo struct {
	db DBTX
}

const userColumns = `id, first_name, last_name, email, username, password_hash, country, enabled, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, first_name, last_name, email, username, password_hash, country, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.FirstName, u.LastName, u.Email, u.Username, u.PasswordHash, u.Country, u.Enabled, now, now,
	)
	if isUniqueViolation(err) {
		// The sqlite error text names the violated column, e.g.
		// "UNIQUE constraint failed: users.email".
		switch {
		case strings.Contains(err.Error(), "users.email"):
			return store.ErrEmailExists
		case strings.Contains(err.Error(), "users.username"):
			return store.ErrUsernameExists
		default:
			return store.ErrAlreadyExists
		}
	}
	return err
}

func (r *usersRepo) EnableUser(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET enabled = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Username,
		&u.PasswordHash, &u.Country, &u.Enabled, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}
