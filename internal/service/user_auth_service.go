package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"authgate/internal/config"
	"authgate/internal/ids"
	"authgate/internal/models"
	"authgate/internal/ratelimit"
	"authgate/internal/repository"
	"authgate/internal/security"
)

// UserAuthService handles the end-user flow: OTP send, OTP verify with
// lazy registration, and refresh-token rotation.
type UserAuthService struct {
	tx       Transactor
	users    UserStore
	tokens   RefreshTokenStore
	otp      *OTPService
	gate     *ratelimit.OTPGate
	notifier Notifier
	security config.SecurityConfig
	otpCfg   config.OTPConfig
	log      zerolog.Logger
}

func NewUserAuthService(
	tx Transactor,
	users UserStore,
	tokens RefreshTokenStore,
	otp *OTPService,
	gate *ratelimit.OTPGate,
	notifier Notifier,
	securityCfg config.SecurityConfig,
	otpCfg config.OTPConfig,
	log zerolog.Logger,
) *UserAuthService {
	return &UserAuthService{
		tx:       tx,
		users:    users,
		tokens:   tokens,
		otp:      otp,
		gate:     gate,
		notifier: notifier,
		security: securityCfg,
		otpCfg:   otpCfg,
		log:      log,
	}
}

type SendOTPResult struct {
	RetryAfter time.Duration
}

// SendOTP gates the request through all three send windows, issues a fresh
// code and dispatches it over the messaging channel. Dispatch failure is
// not an operation failure. The returned retry hint never drops below the
// configured floor so clients don't poll tightly.
func (s *UserAuthService) SendOTP(ctx context.Context, phone, ip string, chatID int64) (SendOTPResult, error) {
	verdict, err := s.gate.CheckSend(ctx, phone, ip)
	if err != nil {
		return SendOTPResult{}, err
	}
	if !verdict.Allowed {
		return SendOTPResult{}, &RateLimitedError{Reason: verdict.Reason, RetryAfter: verdict.RetryAfter}
	}

	user, err := s.users.FindByPhone(ctx, phone)
	found := err == nil
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return SendOTPResult{}, err
	}
	if found && !user.IsActive {
		return SendOTPResult{}, ErrInactive
	}

	var otp models.OTPCode
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if found && chatID != 0 && user.TelegramID == nil {
			if err := s.users.LinkTelegram(ctx, user.ID, chatID); err != nil {
				return err
			}
		}
		var err error
		otp, err = s.otp.Create(ctx, phone, ip)
		return err
	})
	if err != nil {
		return SendOTPResult{}, err
	}

	target := chatID
	if found && user.TelegramID != nil {
		target = *user.TelegramID
	}
	if target != 0 {
		if !s.notifier.SendOTP(ctx, target, otp.Code) {
			s.log.Warn().Str("phone", phone).Msg("otp dispatch failed, user may request a resend")
		}
	}

	if err := s.gate.RecordSend(ctx, phone, ip); err != nil {
		return SendOTPResult{}, err
	}

	retryAfter, err := s.gate.RetryAfter(ctx, phone)
	if err != nil {
		return SendOTPResult{}, err
	}
	if retryAfter < s.otpCfg.ResendFloor {
		retryAfter = s.otpCfg.ResendFloor
	}
	return SendOTPResult{RetryAfter: retryAfter}, nil
}

type VerifyOTPResult struct {
	User         models.User
	Registered   bool
	AccessToken  string
	RefreshToken string
}

// VerifyOTP checks the code, then in a single transaction consumes it,
// fetches or lazily registers the user, records the login and issues an
// access/refresh pair. A crash mid-flow rolls everything back, so no
// verified-but-tokenless state is ever visible. A login alert goes out
// after commit, best-effort.
func (s *UserAuthService) VerifyOTP(ctx context.Context, phone, code, ip, userAgent string) (VerifyOTPResult, error) {
	otp, err := s.otp.Verify(ctx, phone, code)
	if err != nil {
		return VerifyOTPResult{}, err
	}

	var result VerifyOTPResult
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.otp.Consume(ctx, otp.ID); err != nil {
			return err
		}

		user, err := s.users.FindByPhone(ctx, phone)
		if errors.Is(err, repository.ErrNotFound) {
			// First successful verification doubles as registration.
			user = models.User{
				ID:          ids.New(),
				PhoneNumber: phone,
				IsActive:    true,
			}
			if err := s.users.Create(ctx, user); err != nil {
				return err
			}
			result.Registered = true
		} else if err != nil {
			return err
		}

		if !user.IsActive {
			return ErrInactive
		}

		if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
			return err
		}

		access, refresh, err := s.issueTokens(ctx, user)
		if err != nil {
			return err
		}

		result.User = user
		result.AccessToken = access
		result.RefreshToken = refresh
		return nil
	})
	if err != nil {
		return VerifyOTPResult{}, err
	}

	if !result.Registered && result.User.TelegramID != nil {
		if !s.notifier.SendLoginAlert(ctx, *result.User.TelegramID, ip, userAgent) {
			s.log.Warn().Str("user_id", result.User.ID).Msg("login alert dispatch failed")
		}
	}
	return result, nil
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Refresh rotates a refresh token: the presented token is revoked and a
// new pair issued, atomically. A revoked token is never honored again,
// which makes replay of a stolen-and-rotated token detectable.
func (s *UserAuthService) Refresh(ctx context.Context, rawToken string) (TokenPair, error) {
	claims, err := security.ParseUserToken(rawToken, s.security.JWTRefreshSecret, security.TokenTypeRefresh)
	if err != nil || claims.Subject == "" {
		return TokenPair{}, ErrInvalidToken
	}

	var pair TokenPair
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		stored, err := s.tokens.FindByHash(ctx, security.HashToken(rawToken))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidToken
			}
			return err
		}
		if stored.Expired(time.Now()) || stored.UserID != claims.Subject {
			return ErrInvalidToken
		}

		user, err := s.users.GetByID(ctx, stored.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidToken
			}
			return err
		}
		if !user.IsActive {
			return ErrInvalidToken
		}

		revoked, err := s.tokens.Revoke(ctx, stored.ID)
		if err != nil {
			return err
		}
		if !revoked {
			// Lost a race with a concurrent rotation of the same token.
			return ErrInvalidToken
		}

		access, refresh, err := s.issueTokens(ctx, user)
		if err != nil {
			return err
		}
		pair = TokenPair{AccessToken: access, RefreshToken: refresh}
		return nil
	})
	if err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

func (s *UserAuthService) issueTokens(ctx context.Context, user models.User) (string, string, error) {
	access, err := security.SignAccessToken(s.security.JWTAccessSecret, user.ID, user.PhoneNumber, s.security.JWTAccessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err := security.SignRefreshToken(s.security.JWTRefreshSecret, user.ID, s.security.JWTRefreshTTL)
	if err != nil {
		return "", "", err
	}

	if err := s.tokens.Create(ctx, models.RefreshToken{
		ID:        ids.New(),
		UserID:    user.ID,
		TokenHash: security.HashToken(refresh),
		ExpiresAt: time.Now().Add(s.security.JWTRefreshTTL),
	}); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}
