package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SecurityConfig struct {
	JWTAccessSecret  string
	JWTRefreshSecret string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration
	AdminSessionTTL  time.Duration
	BcryptCost       int
	CookieName       string
	CookiePath       string
}

type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
	ResendFloor time.Duration
}

type RateLimitConfig struct {
	OTPPerPhoneMinute  int
	OTPPerPhoneHour    int
	OTPPerIPDay        int
	LoginMaxAttempts   int
	LoginBlockDuration time.Duration
}

type TelegramConfig struct {
	BotToken string
	Timeout  time.Duration
}

// SeedConfig holds the bootstrap super-admin credentials consumed by cmd/seed.
type SeedConfig struct {
	SuperAdminUsername string
	SuperAdminEmail    string
	SuperAdminPassword string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Security         SecurityConfig
	OTP              OTPConfig
	RateLimit        RateLimitConfig
	Telegram         TelegramConfig
	Seed             SeedConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("AUTHGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	// Empty defaults register the keys so env overrides bind to them.
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("security.jwtaccesssecret", "")
	v.SetDefault("security.jwtrefreshsecret", "")
	v.SetDefault("telegram.bottoken", "")
	v.SetDefault("seed.superadminpassword", "")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.jwtaccessttl", "15m")
	v.SetDefault("security.jwtrefreshttl", "168h") // 7 days
	v.SetDefault("security.adminsessionttl", "24h")
	v.SetDefault("security.bcryptcost", 12)
	v.SetDefault("security.cookiename", "admin_session")
	v.SetDefault("security.cookiepath", "/api/v1/admin")

	v.SetDefault("otp.ttl", "5m")
	v.SetDefault("otp.maxattempts", 3)
	v.SetDefault("otp.resendfloor", "60s")

	v.SetDefault("ratelimit.otpperphoneminute", 1)
	v.SetDefault("ratelimit.otpperphonehour", 3)
	v.SetDefault("ratelimit.otpperipday", 10)
	v.SetDefault("ratelimit.loginmaxattempts", 5)
	v.SetDefault("ratelimit.loginblockduration", "15m")

	v.SetDefault("telegram.timeout", "10s")

	v.SetDefault("seed.superadminusername", "superadmin")
	v.SetDefault("seed.superadminemail", "admin@example.com")
}
