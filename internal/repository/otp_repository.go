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

type OTPRepository struct {
	pool *pgxpool.Pool
}

func NewOTPRepository(pool *pgxpool.Pool) *OTPRepository {
	return &OTPRepository{pool: pool}
}

func (r *OTPRepository) db(ctx context.Context) database.Querier {
	return database.QuerierFrom(ctx, r.pool)
}

const otpColumns = `id, phone_number, code, status, attempts, ip_address, expires_at, created_at`

func scanOTP(row pgx.Row) (models.OTPCode, error) {
	var otp models.OTPCode
	if err := row.Scan(
		&otp.ID,
		&otp.PhoneNumber,
		&otp.Code,
		&otp.Status,
		&otp.Attempts,
		&otp.IPAddress,
		&otp.ExpiresAt,
		&otp.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.OTPCode{}, ErrNotFound
		}
		return models.OTPCode{}, err
	}
	return otp, nil
}

func (r *OTPRepository) Create(ctx context.Context, otp models.OTPCode) error {
	const query = `
		INSERT INTO otp_codes (id, phone_number, code, status, attempts, ip_address, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	_, err := r.db(ctx).Exec(ctx, query,
		otp.ID, otp.PhoneNumber, otp.Code, otp.Status, otp.Attempts, otp.IPAddress, otp.ExpiresAt)
	return err
}

// SupersedeActive marks every still-issued code for the phone as
// superseded, so at most one code per phone is ever authoritative.
func (r *OTPRepository) SupersedeActive(ctx context.Context, phone string) error {
	const query = `
		UPDATE otp_codes SET status = $2
		WHERE phone_number = $1 AND status = $3
	`
	_, err := r.db(ctx).Exec(ctx, query, phone, models.OTPStatusSuperseded, models.OTPStatusIssued)
	return err
}

// FindActive returns the most recently created issued, unexpired code for
// the phone. Expiry is evaluated at read time against now.
func (r *OTPRepository) FindActive(ctx context.Context, phone string, now time.Time) (models.OTPCode, error) {
	query := `
		SELECT ` + otpColumns + ` FROM otp_codes
		WHERE phone_number = $1 AND status = $2 AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanOTP(r.db(ctx).QueryRow(ctx, query, phone, models.OTPStatusIssued, now))
}

// RecordAttempt increments the attempt counter and returns the new value.
func (r *OTPRepository) RecordAttempt(ctx context.Context, id string) (int, error) {
	const query = `
		UPDATE otp_codes SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts
	`
	var attempts int
	if err := r.db(ctx).QueryRow(ctx, query, id).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return attempts, nil
}

// Finish moves a code from issued to a terminal status. The conditional
// update makes consumption single-shot under concurrent verifies: only one
// caller observes reported=true.
func (r *OTPRepository) Finish(ctx context.Context, id string, status models.OTPStatus) (bool, error) {
	const query = `
		UPDATE otp_codes SET status = $2
		WHERE id = $1 AND status = $3
	`
	cmd, err := r.db(ctx).Exec(ctx, query, id, status, models.OTPStatusIssued)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// DeleteOlderThan removes rows created before the cutoff. Housekeeping
// only; correctness never depends on it.
func (r *OTPRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM otp_codes WHERE created_at < $1`
	cmd, err := r.db(ctx).Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
