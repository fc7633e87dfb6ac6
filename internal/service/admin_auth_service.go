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

// AdminAuthService issues and validates server-side admin sessions with
// their paired CSRF tokens, and enforces the login lockout.
type AdminAuthService struct {
	tx       Transactor
	admins   AdminStore
	sessions AdminSessionStore
	guard    *ratelimit.LoginGuard
	cfg      config.SecurityConfig
	log      zerolog.Logger
}

func NewAdminAuthService(
	tx Transactor,
	admins AdminStore,
	sessions AdminSessionStore,
	guard *ratelimit.LoginGuard,
	cfg config.SecurityConfig,
	log zerolog.Logger,
) *AdminAuthService {
	return &AdminAuthService{
		tx:       tx,
		admins:   admins,
		sessions: sessions,
		guard:    guard,
		cfg:      cfg,
		log:      log,
	}
}

type LoginResult struct {
	Admin        models.Admin
	SessionToken string
	CSRFToken    string
}

// Login authenticates by username or email. Unknown identifiers bump the
// failure counter exactly like wrong passwords, and the wire-level message
// is identical for both, so account existence never leaks. An inactive
// account fails without bumping: an account lock is not a credential lock.
func (s *AdminAuthService) Login(ctx context.Context, identifier, password, ip, userAgent string) (LoginResult, error) {
	blocked, remaining, err := s.guard.Blocked(ctx, identifier)
	if err != nil {
		return LoginResult{}, err
	}
	if blocked {
		return LoginResult{}, &RateLimitedError{
			Reason:     "too many failed attempts, account temporarily locked",
			RetryAfter: remaining,
		}
	}

	admin, err := s.admins.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if _, _, err := s.guard.RecordFailure(ctx, identifier); err != nil {
				return LoginResult{}, err
			}
			return LoginResult{}, &LoginFailedError{Remaining: -1}
		}
		return LoginResult{}, err
	}

	if !admin.IsActive {
		return LoginResult{}, ErrInactive
	}

	if !security.VerifyPassword(password, admin.PasswordHash) {
		attempts, _, err := s.guard.RecordFailure(ctx, identifier)
		if err != nil {
			return LoginResult{}, err
		}
		left := s.guard.MaxAttempts() - attempts
		if left < 0 {
			left = 0
		}
		return LoginResult{}, &LoginFailedError{Remaining: left}
	}

	if err := s.guard.Clear(ctx, identifier); err != nil {
		return LoginResult{}, err
	}

	sessionToken, err := security.GenerateOpaqueToken()
	if err != nil {
		return LoginResult{}, err
	}
	csrfToken, err := security.GenerateOpaqueToken()
	if err != nil {
		return LoginResult{}, err
	}

	session := models.AdminSession{
		ID:           ids.New(),
		AdminID:      admin.ID,
		SessionToken: sessionToken,
		CSRFToken:    csrfToken,
		IPAddress:    ip,
		UserAgent:    userAgent,
		ExpiresAt:    time.Now().Add(s.cfg.AdminSessionTTL),
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.sessions.Create(ctx, session)
	})
	if err != nil {
		return LoginResult{}, err
	}

	s.log.Info().Str("admin_id", admin.ID).Str("ip", ip).Msg("admin logged in")
	return LoginResult{Admin: admin, SessionToken: sessionToken, CSRFToken: csrfToken}, nil
}

// Logout deletes the session matching the token. Idempotent.
func (s *AdminAuthService) Logout(ctx context.Context, sessionToken string) error {
	return s.sessions.DeleteByToken(ctx, sessionToken)
}

// ValidateSession resolves a session token to its admin with permissions
// loaded. An expired session is deleted on sight; no background sweep is
// needed for correctness.
func (s *AdminAuthService) ValidateSession(ctx context.Context, sessionToken string) (models.Admin, models.AdminSession, error) {
	session, err := s.sessions.FindByToken(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Admin{}, models.AdminSession{}, ErrSessionInvalid
		}
		return models.Admin{}, models.AdminSession{}, err
	}

	if session.Expired(time.Now()) {
		if err := s.sessions.DeleteByID(ctx, session.ID); err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("lazy session cleanup failed")
		}
		return models.Admin{}, models.AdminSession{}, ErrSessionInvalid
	}

	admin, err := s.admins.GetByID(ctx, session.AdminID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Admin{}, models.AdminSession{}, ErrSessionInvalid
		}
		return models.Admin{}, models.AdminSession{}, err
	}
	if !admin.IsActive {
		return models.Admin{}, models.AdminSession{}, ErrSessionInvalid
	}

	return admin, session, nil
}

// SweepExpired removes expired sessions in bulk. Housekeeping only.
func (s *AdminAuthService) SweepExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, time.Now())
}
