package sqlite

import (
	"context"
	"time"

	"github.com/forumstack/auth-service/internal/auth/domain"
)

type verificationTokensRepo struct {
	db DBTX
}

func (r *verificationTokensRepo) CreateVerificationToken(ctx context.Context, t domain.VerificationToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt.UTC(), time.Now().UTC(),
	)
	return err
}

func (r *verificationTokensRepo) GetVerificationTokenByHash(
	ctx context.Context,
	hash string,
) (domain.VerificationToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM verification_tokens WHERE token_hash = ?`, hash)

	var t domain.VerificationToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return domain.VerificationToken{}, mapNotFound(err)
	}
	return t, nil
}

func (r *verificationTokensRepo) DeleteVerificationToken(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE id = ?`, id)
	return err
}

func (r *verificationTokensRepo) DeleteExpiredVerificationTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_tokens WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
