package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrResetTokenClaimed is returned when a reset token was redeemed concurrently.
var ErrResetTokenClaimed = errors.New("reset token already claimed")

// PasswordResetToken is a single-use credential for resetting a password.
// Token holds the plaintext only between Create and delivery; the table keeps a digest.
type PasswordResetToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Usable reports whether the token can still be redeemed at now.
func (t *PasswordResetToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}

//go:generate go run go.uber.org/mock/mockgen@latest -source=password_reset_repository.go -destination=../mocks/password_reset_repository.go -package=mocks

// PasswordResetRepository stores reset tokens by digest.
type PasswordResetRepository interface {
	Create(ctx context.Context, token *PasswordResetToken) error
	GetByToken(ctx context.Context, token string) (*PasswordResetToken, error)
	// Claim marks the token used. It fails with ErrResetTokenClaimed if it already was.
	Claim(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type passwordResetRepository struct {
	pool *pgxpool.Pool
}

// NewPasswordResetRepository constructs repository.
func NewPasswordResetRepository(pool *pgxpool.Pool) PasswordResetRepository {
	return &passwordResetRepository{pool: pool}
}

func digestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (r *passwordResetRepository) Create(ctx context.Context, token *PasswordResetToken) error {
	const query = `
        INSERT INTO password_reset_tokens (user_id, token_hash, expires_at)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, token.UserID, digestToken(token.Token), token.ExpiresAt).
		Scan(&token.ID, &token.CreatedAt)
}

func (r *passwordResetRepository) GetByToken(ctx context.Context, plain string) (*PasswordResetToken, error) {
	const query = `
        SELECT id, user_id, expires_at, used_at, created_at
        FROM password_reset_tokens WHERE token_hash = $1`
	token := PasswordResetToken{Token: plain}
	err := r.pool.QueryRow(ctx, query, digestToken(plain)).Scan(
		&token.ID,
		&token.UserID,
		&token.ExpiresAt,
		&token.UsedAt,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *passwordResetRepository) Claim(ctx context.Context, id string) error {
	const query = `
        UPDATE password_reset_tokens SET used_at = NOW()
        WHERE id = $1 AND used_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrResetTokenClaimed
	}
	return nil
}

// DeleteExpired removes tokens that expired or were used before the cutoff.
func (r *passwordResetRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const query = `
        DELETE FROM password_reset_tokens
        WHERE expires_at < $1 OR (used_at IS NOT NULL AND used_at < $1)`
	cmd, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
