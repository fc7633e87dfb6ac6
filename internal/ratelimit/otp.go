package ratelimit

import (
	"context"
	"fmt"
	"time"
)

type OTPGateConfig struct {
	PerPhoneMinute int
	PerPhoneHour   int
	PerIPDay       int
}

// Verdict is the outcome of an admission check. RetryAfter is only set
// when Allowed is false.
type Verdict struct {
	Allowed    bool
	Reason     string
	RetryAfter time.Duration
}

// OTPGate guards OTP sends with three independent fixed windows:
// per-phone per-minute, per-phone per-hour and per-IP per-day. All three
// must pass for a send to proceed.
type OTPGate struct {
	limiter *Limiter
	cfg     OTPGateConfig
}

func NewOTPGate(limiter *Limiter, cfg OTPGateConfig) *OTPGate {
	return &OTPGate{limiter: limiter, cfg: cfg}
}

func otpMinuteKey(phone string) string { return fmt.Sprintf("otp:phone:%s:minute", phone) }
func otpHourKey(phone string) string   { return fmt.Sprintf("otp:phone:%s:hour", phone) }
func otpDayKey(ip string) string       { return fmt.Sprintf("otp:ip:%s:day", ip) }

func (g *OTPGate) CheckSend(ctx context.Context, phone, ip string) (Verdict, error) {
	windows := []struct {
		key    string
		limit  int
		reason string
	}{
		{otpMinuteKey(phone), g.cfg.PerPhoneMinute, "only one code per minute is allowed"},
		{otpHourKey(phone), g.cfg.PerPhoneHour, "hourly code limit reached, try again later"},
		{otpDayKey(ip), g.cfg.PerIPDay, "daily limit reached, try again tomorrow"},
	}

	for _, w := range windows {
		allowed, retryAfter, err := g.limiter.Check(ctx, w.key, w.limit)
		if err != nil {
			return Verdict{}, err
		}
		if !allowed {
			return Verdict{Reason: w.reason, RetryAfter: retryAfter}, nil
		}
	}
	return Verdict{Allowed: true}, nil
}

// RecordSend bumps all three windows after a successful send.
func (g *OTPGate) RecordSend(ctx context.Context, phone, ip string) error {
	if _, err := g.limiter.Bump(ctx, otpMinuteKey(phone), time.Minute); err != nil {
		return err
	}
	if _, err := g.limiter.Bump(ctx, otpHourKey(phone), time.Hour); err != nil {
		return err
	}
	if _, err := g.limiter.Bump(ctx, otpDayKey(ip), 24*time.Hour); err != nil {
		return err
	}
	return nil
}

// RetryAfter returns the remaining minute window for a phone, used as the
// resend hint after a successful send.
func (g *OTPGate) RetryAfter(ctx context.Context, phone string) (time.Duration, error) {
	return g.limiter.Remaining(ctx, otpMinuteKey(phone))
}
