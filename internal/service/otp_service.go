package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"authgate/internal/config"
	"authgate/internal/ids"
	"authgate/internal/models"
	"authgate/internal/repository"
	"authgate/internal/security"
)

// OTPService owns the per-phone OTP state machine:
// issued -> verified | exhausted | superseded, all terminal.
type OTPService struct {
	otps OTPStore
	cfg  config.OTPConfig
	log  zerolog.Logger
}

func NewOTPService(otps OTPStore, cfg config.OTPConfig, log zerolog.Logger) *OTPService {
	return &OTPService{otps: otps, cfg: cfg, log: log}
}

// Create supersedes every still-issued code for the phone and issues a
// fresh one. It does not own a commit boundary: when called inside a
// transaction the supersede and insert ride along with the caller's work.
func (s *OTPService) Create(ctx context.Context, phone, ip string) (models.OTPCode, error) {
	if err := s.otps.SupersedeActive(ctx, phone); err != nil {
		return models.OTPCode{}, err
	}

	code, err := security.GenerateOTPCode()
	if err != nil {
		return models.OTPCode{}, err
	}

	otp := models.OTPCode{
		ID:          ids.New(),
		PhoneNumber: phone,
		Code:        code,
		Status:      models.OTPStatusIssued,
		IPAddress:   ip,
		ExpiresAt:   time.Now().Add(s.cfg.TTL),
	}
	if err := s.otps.Create(ctx, otp); err != nil {
		return models.OTPCode{}, err
	}
	return otp, nil
}

// Verify checks the submitted code against the phone's active challenge.
// Failure bookkeeping (attempt counters, exhaustion) is written as it
// happens. A match returns the still-issued code without consuming it;
// the caller finishes it inside its own transaction so consumption is
// atomic with whatever the success unlocks.
func (s *OTPService) Verify(ctx context.Context, phone, code string) (models.OTPCode, error) {
	otp, err := s.otps.FindActive(ctx, phone, time.Now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.OTPCode{}, ErrOTPNotFound
		}
		return models.OTPCode{}, err
	}

	if otp.Attempts >= s.cfg.MaxAttempts {
		if _, err := s.otps.Finish(ctx, otp.ID, models.OTPStatusExhausted); err != nil {
			return models.OTPCode{}, err
		}
		return models.OTPCode{}, ErrOTPExhausted
	}

	if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) != 1 {
		attempts, err := s.otps.RecordAttempt(ctx, otp.ID)
		if err != nil {
			return models.OTPCode{}, err
		}
		if attempts >= s.cfg.MaxAttempts {
			if _, err := s.otps.Finish(ctx, otp.ID, models.OTPStatusExhausted); err != nil {
				return models.OTPCode{}, err
			}
			return models.OTPCode{}, ErrOTPExhausted
		}
		return models.OTPCode{}, &WrongCodeError{Remaining: s.cfg.MaxAttempts - attempts}
	}

	return otp, nil
}

// Consume marks a matched code verified. The conditional update means
// exactly one of any concurrent consumers wins; the rest see the code as
// already gone.
func (s *OTPService) Consume(ctx context.Context, id string) error {
	consumed, err := s.otps.Finish(ctx, id, models.OTPStatusVerified)
	if err != nil {
		return err
	}
	if !consumed {
		return ErrOTPNotFound
	}
	return nil
}
