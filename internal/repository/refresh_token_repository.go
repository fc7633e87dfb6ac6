package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"authgate/internal/database"
	"authgate/internal/models"
)

type RefreshTokenRepository struct {
	pool *pgxpool.Pool
}

func NewRefreshTokenRepository(pool *pgxpool.Pool) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: pool}
}

func (r *RefreshTokenRepository) db(ctx context.Context) database.Querier {
	return database.QuerierFrom(ctx, r.pool)
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token models.RefreshToken) error {
	const query = `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, false, NOW())
	`
	_, err := r.db(ctx).Exec(ctx, query, token.ID, token.UserID, token.TokenHash, token.ExpiresAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// FindByHash looks up a non-revoked token row by the hash of the raw value.
func (r *RefreshTokenRepository) FindByHash(ctx context.Context, tokenHash string) (models.RefreshToken, error) {
	const query = `
		SELECT id, user_id, token_hash, expires_at, revoked, created_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND NOT revoked
	`
	var token models.RefreshToken
	if err := r.db(ctx).QueryRow(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.Revoked,
		&token.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RefreshToken{}, ErrNotFound
		}
		return models.RefreshToken{}, err
	}
	return token, nil
}

// Revoke marks a token revoked. The conditional write means two concurrent
// rotations of the same token cannot both succeed.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE refresh_tokens SET revoked = true WHERE id = $1 AND NOT revoked`
	cmd, err := r.db(ctx).Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	const query = `UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND NOT revoked`
	_, err := r.db(ctx).Exec(ctx, query, userID)
	return err
}

func (r *RefreshTokenRepository) DeleteForUser(ctx context.Context, userID string) error {
	const query = `DELETE FROM refresh_tokens WHERE user_id = $1`
	_, err := r.db(ctx).Exec(ctx, query, userID)
	return err
}

func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at < $1`
	cmd, err := r.db(ctx).Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
