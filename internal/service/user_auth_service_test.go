package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/config"
	"authgate/internal/ids"
	"authgate/internal/models"
	"authgate/internal/ratelimit"
	"authgate/internal/security"
)

func testSecurityConfig() config.SecurityConfig {
	return config.SecurityConfig{
		JWTAccessSecret:  "test-access-secret",
		JWTRefreshSecret: "test-refresh-secret",
		JWTAccessTTL:     15 * time.Minute,
		JWTRefreshTTL:    7 * 24 * time.Hour,
		AdminSessionTTL:  24 * time.Hour,
		BcryptCost:       4,
		CookieName:       "admin_session",
		CookiePath:       "/api/v1/admin",
	}
}

type userAuthFixture struct {
	svc      *UserAuthService
	users    *fakeUserStore
	otps     *fakeOTPStore
	tokens   *fakeRefreshTokenStore
	notifier *fakeNotifier
	redis    *miniredis.Miniredis
}

func newUserAuthFixture(t *testing.T) *userAuthFixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})

	users := newFakeUserStore()
	otps := newFakeOTPStore()
	tokens := newFakeRefreshTokenStore()
	notifier := &fakeNotifier{}

	gate := ratelimit.NewOTPGate(ratelimit.NewLimiter(rdb), ratelimit.OTPGateConfig{
		PerPhoneMinute: 1,
		PerPhoneHour:   3,
		PerIPDay:       10,
	})

	otpSvc := NewOTPService(otps, testOTPConfig(), zerolog.Nop())
	svc := NewUserAuthService(fakeTx{}, users, tokens, otpSvc, gate, notifier,
		testSecurityConfig(), testOTPConfig(), zerolog.Nop())

	return &userAuthFixture{svc: svc, users: users, otps: otps, tokens: tokens, notifier: notifier, redis: mr}
}

func (f *userAuthFixture) issuedCode(t *testing.T, phone string) string {
	t.Helper()
	otp, err := f.otps.FindActive(context.Background(), phone, time.Now())
	require.NoError(t, err)
	return otp.Code
}

func TestSendOTPNewPhone(t *testing.T) {
	f := newUserAuthFixture(t)
	ctx := context.Background()

	result, err := f.svc.SendOTP(ctx, "+15550001111", "10.0.0.1", 777)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.RetryAfter, time.Minute, "hint must not drop below the resend floor")

	assert.Equal(t, []int64{777}, f.notifier.otpSends)
	assert.Equal(t, f.issuedCode(t, "+15550001111"), f.notifier.lastCode)

	// No account exists until the code is verified.
	_, err = f.users.FindByPhone(ctx, "+15550001111")
	assert.Error(t, err)
}

func TestSendOTPRateLimited(t *testing.T) {
	f := newUserAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, "+15550001111", "10.0.0.1", 777)
	require.NoError(t, err)

	_, err = f.svc.SendOTP(ctx, "+15550001111", "10.0.0.1", 777)
	var rateLimited *RateLimitedError
	require.ErrorAs(t, err, &rateLimited)
	assert.Greater(t, rateLimited.RetryAfter, time.Duration(0))
}

func TestSendOTPSupersedesAfterWindow(t *testing.T) {
	f := newUserAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, "+15550001111", "10.0.0.1", 777)
	require.NoError(t, err)
	first := f.issuedCode(t, "+15550001111")

	f.redis.FastForward(61 * time.Second)

	_, err = f.svc.SendOTP(ctx, "+15550001111", "10.0.0.1", 777)
	require.NoError(t, err)
	second := f.issuedCode(t, "+15550001111")

	if first != second {
		_, err = f.svc.VerifyOTP(ctx, "+15550001111", first, "10.0.0.1", "go-test")
		assert.Error(t, err, "superseded code must not verify")
	}
	_, err = f.svc.VerifyOTP(ctx, "+15550001111", second, "10.0.0.1", "go-test")
	assert.NoError(t, err)
}

func TestSendOTPInactiveUser(t *testing.T) {
	f := newUserAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.users.Create(ctx, models.User{
		ID:          ids.New(),
		PhoneNumber: "+15550001111",
		IsActive:    false,
	}))

	_, err := f.svc.SendOTP(ctx, "+15550001111", "10.0.0.1", 777)
	assert.ErrorIs(t, err, ErrInactive)
}

func TestSendOTPLinksTelegramOnce(t *testing.T) {
	f := newUserAuthFixture(t)
	ctx := context.Background()

	existing := int64(111)
	require.NoError(t, f.users.Create(ctx, models.User{
		ID:          "u1",
		PhoneNumber: "+15550001111",
		TelegramID:  &existing,
		IsActive:    true,
	}))

	// A differing chat id on a later send never overwrites the link, and
	// delivery goes to the linked chat.
	_, err := f.svc.SendOTP(ctx, "+15550001111", "10.0.0.1", 222)
	require.NoError(t, err)

	user, err := f.users.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, user.TelegramID)
	assert.Equal(t, int64(111), *user.TelegramID)
	assert.Equal(t, []int64{111}, f.notifier.otpSends)
}

func TestSendOTPDispatchFailureIsNotFatal(t *testing.T) {
	f := newUserAuthFixture(t)
	f.notifier.fail = true

	_, err := f.svc.SendOTP(context.Background(), "+15550001111", "10.0.0.1", 777)
	assert.NoError(t, err)
}

func TestVerifyOTPRegistersNewUser(t *testing.T) {
	f := newUserAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, "+15550001111", "10.0.0.1", 777)
	require.NoError(t, err)

	result, err := f.svc.VerifyOTP(ctx, "+15550001111", f.issuedCode(t, "+15550001111"), "10.0.0.1", "go-test")
	require.NoError(t, err)

	assert.True(t, result.Registered)
	assert.Equal(t, "+15550001111", result.User.PhoneNumber)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)

	stored, err := f.users.GetByID(ctx, result.User.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.NotNil(t, stored.LastLoginAt)

	claims, err := security.ParseUserToken(result.AccessToken, "test-access-secret", security.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.Subject)
}

func TestVerifyOTPExistingUser(t *testing.T) {
	f := newUserAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, f.users.Create(ctx, models.User{
		ID:          "u1",
		PhoneNumber: "+15550001111",
		IsActive:    true,
	}))

	_, err := f.svc.SendOTP(ctx, "+15550001111", "10.0.0.1", 0)
	require.NoError(t, err)

	result, err := f.svc.VerifyOTP(ctx, "+15550001111", f.issuedCode(t, "+15550001111"), "10.0.0.1", "go-test")
	require.NoError(t, err)
	assert.False(t, result.Registered)
	assert.Equal(t, "u1", result.User.ID)
}

func TestVerifyOTPLoginAlert(t *testing.T) {
	f := newUserAuthFixture(t)
	ctx := context.Background()

	chat := int64(777)
	require.NoError(t, f.users.Create(ctx, models.User{
		ID:          "u1",
		PhoneNumber: "+15550001111",
		TelegramID:  &chat,
		IsActive:    true,
	}))

	_, err := f.svc.SendOTP(ctx, "+15550001111", "10.0.0.1", 0)
	require.NoError(t, err)
	_, err = f.svc.VerifyOTP(ctx, "+15550001111", f.issuedCode(t, "+15550001111"), "10.0.0.1", "go-test")
	require.NoError(t, err)

	assert.Equal(t, []int64{777}, f.notifier.alertSends)
}

func TestVerifyOTPNoAlertOnRegistration(t *testing.T) {
	f := newUserAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, "+15550001111", "10.0.0.1", 777)
	require.NoError(t, err)
	result, err := f.svc.VerifyOTP(ctx, "+15550001111", f.issuedCode(t, "+15550001111"), "10.0.0.1", "go-test")
	require.NoError(t, err)
	require.True(t, result.Registered)

	assert.Empty(t, f.notifier.alertSends, "a first login is a registration, not a new device")
}

func TestVerifyOTPCodeIsSingleUse(t *testing.T) {
	f := newUserAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, "+15550001111", "10.0.0.1", 0)
	require.NoError(t, err)
	code := f.issuedCode(t, "+15550001111")

	_, err = f.svc.VerifyOTP(ctx, "+15550001111", code, "10.0.0.1", "go-test")
	require.NoError(t, err)

	_, err = f.svc.VerifyOTP(ctx, "+15550001111", code, "10.0.0.1", "go-test")
	assert.ErrorIs(t, err, ErrOTPNotFound)
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newUserAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, "+15550001111", "10.0.0.1", 0)
	require.NoError(t, err)
	result, err := f.svc.VerifyOTP(ctx, "+15550001111", f.issuedCode(t, "+15550001111"), "10.0.0.1", "go-test")
	require.NoError(t, err)

	pair, err := f.svc.Refresh(ctx, result.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, result.RefreshToken, pair.RefreshToken)

	// Exactly one live refresh token after rotation.
	assert.Equal(t, 1, f.tokens.activeCount(result.User.ID))

	// Replaying the rotated-out token fails.
	_, err = f.svc.Refresh(ctx, result.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// The new one still works.
	_, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	f := newUserAuthFixture(t)

	_, err := f.svc.Refresh(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newUserAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, "+15550001111", "10.0.0.1", 0)
	require.NoError(t, err)
	result, err := f.svc.VerifyOTP(ctx, "+15550001111", f.issuedCode(t, "+15550001111"), "10.0.0.1", "go-test")
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, result.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRejectsDeactivatedUser(t *testing.T) {
	f := newUserAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendOTP(ctx, "+15550001111", "10.0.0.1", 0)
	require.NoError(t, err)
	result, err := f.svc.VerifyOTP(ctx, "+15550001111", f.issuedCode(t, "+15550001111"), "10.0.0.1", "go-test")
	require.NoError(t, err)

	require.NoError(t, f.users.SetActive(ctx, result.User.ID, false))

	_, err = f.svc.Refresh(ctx, result.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
