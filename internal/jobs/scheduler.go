package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"authgate/internal/repository"
)

// Scheduler runs the periodic database sweeps: expired admin sessions,
// expired refresh tokens and OTP rows past their retention window. All
// sweeps are idempotent, so overlapping with a second instance is safe.
type Scheduler struct {
	cron     *cron.Cron
	sessions *repository.AdminSessionRepository
	tokens   *repository.RefreshTokenRepository
	otps     *repository.OTPRepository
	log      zerolog.Logger
}

const otpRetention = 24 * time.Hour

func NewScheduler(db *pgxpool.Pool, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		sessions: repository.NewAdminSessionRepository(db),
		tokens:   repository.NewRefreshTokenRepository(db),
		otps:     repository.NewOTPRepository(db),
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 */1 * * *", s.sweep); err != nil { // hourly
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.CancelFunc {
	_, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	go func() {
		<-s.cron.Stop().Done()
		cancel()
	}()
	return cancel
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()

	if n, err := s.sessions.DeleteExpired(ctx, now); err != nil {
		s.log.Error().Err(err).Msg("session sweep failed")
	} else if n > 0 {
		s.log.Info().Int64("removed", n).Msg("expired admin sessions swept")
	}

	if n, err := s.tokens.DeleteExpired(ctx, now); err != nil {
		s.log.Error().Err(err).Msg("refresh token sweep failed")
	} else if n > 0 {
		s.log.Info().Int64("removed", n).Msg("expired refresh tokens swept")
	}

	cutoff := now.Add(-otpRetention)
	if n, err := s.otps.DeleteOlderThan(ctx, cutoff); err != nil {
		s.log.Error().Err(err).Msg("otp sweep failed")
	} else if n > 0 {
		s.log.Info().Int64("removed", n).Msg("stale otp rows swept")
	}
}
