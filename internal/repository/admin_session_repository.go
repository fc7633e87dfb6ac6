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

type AdminSessionRepository struct {
	pool *pgxpool.Pool
}

func NewAdminSessionRepository(pool *pgxpool.Pool) *AdminSessionRepository {
	return &AdminSessionRepository{pool: pool}
}

func (r *AdminSessionRepository) db(ctx context.Context) database.Querier {
	return database.QuerierFrom(ctx, r.pool)
}

const adminSessionColumns = `id, admin_id, session_token, csrf_token, ip_address, user_agent, expires_at, created_at`

func (r *AdminSessionRepository) Create(ctx context.Context, session models.AdminSession) error {
	const query = `
		INSERT INTO admin_sessions (id, admin_id, session_token, csrf_token, ip_address, user_agent, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	_, err := r.db(ctx).Exec(ctx, query,
		session.ID, session.AdminID, session.SessionToken, session.CSRFToken,
		session.IPAddress, session.UserAgent, session.ExpiresAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *AdminSessionRepository) FindByToken(ctx context.Context, token string) (models.AdminSession, error) {
	query := `SELECT ` + adminSessionColumns + ` FROM admin_sessions WHERE session_token = $1`
	var session models.AdminSession
	if err := r.db(ctx).QueryRow(ctx, query, token).Scan(
		&session.ID,
		&session.AdminID,
		&session.SessionToken,
		&session.CSRFToken,
		&session.IPAddress,
		&session.UserAgent,
		&session.ExpiresAt,
		&session.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AdminSession{}, ErrNotFound
		}
		return models.AdminSession{}, err
	}
	return session, nil
}

func (r *AdminSessionRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db(ctx).Exec(ctx, `DELETE FROM admin_sessions WHERE id = $1`, id)
	return err
}

// DeleteByToken removes the session matching the token. Idempotent:
// deleting a missing token is not an error.
func (r *AdminSessionRepository) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db(ctx).Exec(ctx, `DELETE FROM admin_sessions WHERE session_token = $1`, token)
	return err
}

func (r *AdminSessionRepository) DeleteForAdmin(ctx context.Context, adminID string) error {
	_, err := r.db(ctx).Exec(ctx, `DELETE FROM admin_sessions WHERE admin_id = $1`, adminID)
	return err
}

func (r *AdminSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := r.db(ctx).Exec(ctx, `DELETE FROM admin_sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
