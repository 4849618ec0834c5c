package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	devJWTSecret = "dev-secret"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Billing      BillingConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"APP_NAME" envDefault:"tableflow"`
	Env                   string `env:"APP_ENV" envDefault:"production"`
	Host                  string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port                  string `env:"APP_PORT" envDefault:"8080"`
	Version               string `env:"APP_VERSION" envDefault:"dev"`
	PublicURL             string `env:"APP_PUBLIC_URL" envDefault:"http://localhost:5173"`
	RequestTimeoutSeconds int    `env:"HTTP_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `env:"POSTGRES_DSN"`
	MaxConns       int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	MinConns       int32  `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	RunMigrations  bool   `env:"POSTGRES_RUN_MIGRATIONS" envDefault:"true"`
	ConnMaxIdleSec int32  `env:"POSTGRES_CONN_MAX_IDLE_SECONDS" envDefault:"30"`
	ConnMaxLifeSec int32  `env:"POSTGRES_CONN_MAX_LIFE_SECONDS" envDefault:"300"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr           string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Password       string `env:"REDIS_PASSWORD"`
	DB             int    `env:"REDIS_DB" envDefault:"0"`
	SessionChannel string `env:"REDIS_SESSION_CHANNEL" envDefault:"tableflow:sessions"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret               string  `env:"AUTH_JWT_SECRET"`
	AccessTokenTTLMinutes   int     `env:"AUTH_ACCESS_TOKEN_TTL_MINUTES" envDefault:"60"`
	PasswordResetTTLMinutes int     `env:"AUTH_PASSWORD_RESET_TTL_MINUTES" envDefault:"30"`
	VerificationTTLMinutes  int     `env:"AUTH_VERIFICATION_TTL_MINUTES" envDefault:"1440"`
	RequireVerification     bool    `env:"AUTH_REQUIRE_VERIFICATION" envDefault:"false"`
	BcryptCost              int     `env:"AUTH_BCRYPT_COST" envDefault:"12"`
	LoginRatePerSecond      float64 `env:"AUTH_LOGIN_RATE_PER_SECOND" envDefault:"0.2"`
	LoginBurst              int     `env:"AUTH_LOGIN_BURST" envDefault:"5"`
	// ExposeResetTokens returns reset tokens in the API response. Development only.
	ExposeResetTokens bool `env:"AUTH_EXPOSE_RESET_TOKENS" envDefault:"false"`
}

// NotificationConfig holds push and email delivery settings.
type NotificationConfig struct {
	EmailFrom       string        `env:"NOTIFY_EMAIL_FROM" envDefault:"noreply@example.com"`
	EmailFromName   string        `env:"NOTIFY_EMAIL_FROM_NAME" envDefault:"TableFlow"`
	SMTPHost        string        `env:"NOTIFY_SMTP_HOST"`
	SMTPPort        int           `env:"NOTIFY_SMTP_PORT" envDefault:"587"`
	SMTPUser        string        `env:"NOTIFY_SMTP_USER"`
	SMTPPassword    string        `env:"NOTIFY_SMTP_PASSWORD"`
	VAPIDPublicKey  string        `env:"NOTIFY_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string        `env:"NOTIFY_VAPID_PRIVATE_KEY"`
	VAPIDSubject    string        `env:"NOTIFY_VAPID_SUBJECT" envDefault:"mailto:admin@example.com"`
	PushTTLSeconds  int           `env:"NOTIFY_PUSH_TTL_SECONDS" envDefault:"3600"`
	PushRetryMax    int           `env:"NOTIFY_PUSH_RETRY_MAX" envDefault:"3"`
	PushIcon        string        `env:"NOTIFY_PUSH_ICON" envDefault:"/icons/icon-192.png"`
	PushBadge       string        `env:"NOTIFY_PUSH_BADGE" envDefault:"/icons/badge-72.png"`
	CleanupSchedule string        `env:"NOTIFY_CLEANUP_SCHEDULE" envDefault:"@daily"`
	StaleAfter      time.Duration `env:"NOTIFY_PUSH_STALE_AFTER" envDefault:"2160h"`
}

// BillingConfig holds invoice rendering settings.
type BillingConfig struct {
	PageCapacity  int           `env:"BILLING_PAGE_CAPACITY" envDefault:"10"`
	CompanyName   string        `env:"BILLING_COMPANY_NAME" envDefault:"TableFlow"`
	Locale        string        `env:"BILLING_LOCALE" envDefault:"en"`
	ChromePath    string        `env:"BILLING_CHROME_PATH"`
	RenderTimeout time.Duration `env:"BILLING_RENDER_TIMEOUT" envDefault:"30s"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Billing.PageCapacity <= 0 {
		return nil, fmt.Errorf("invalid BILLING_PAGE_CAPACITY: %d", cfg.Billing.PageCapacity)
	}
	if err := cfg.checkAuth(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) checkAuth() error {
	if c.App.IsDevelopment() {
		if c.Auth.JWTSecret == "" {
			c.Auth.JWTSecret = devJWTSecret
		}
		return nil
	}
	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == devJWTSecret {
		return fmt.Errorf("AUTH_JWT_SECRET must be set when APP_ENV=%q", c.App.Env)
	}
	if c.Auth.ExposeResetTokens {
		return fmt.Errorf("AUTH_EXPOSE_RESET_TOKENS is only allowed when APP_ENV=%q", EnvDevelopment)
	}
	return nil
}

// IsDevelopment reports whether the service runs in local development mode.
func (a AppConfig) IsDevelopment() bool {
	return a.Env == EnvDevelopment
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// PushEnabled reports whether VAPID keys are configured.
func (n NotificationConfig) PushEnabled() bool {
	return n.VAPIDPublicKey != "" && n.VAPIDPrivateKey != ""
}

// EmailEnabled reports whether an SMTP relay is configured.
func (n NotificationConfig) EmailEnabled() bool {
	return n.SMTPHost != ""
}
