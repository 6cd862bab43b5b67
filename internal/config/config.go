package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "WPOS"

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Storage  StorageConfig
	SMS      SMSConfig
	Payments PaymentsConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	Env         string   `envconfig:"APP_ENV" default:"development"`
	Port        string   `envconfig:"PORT" default:"8080"`
	LogLevel    string   `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string   `envconfig:"LOG_FORMAT" default:"json"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
	BodyLimit   string   `envconfig:"BODY_LIMIT" default:"10M"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, "development") || strings.EqualFold(a.Env, "dev")
}

type DBConfig struct {
	URL             string        `envconfig:"DATABASE_URL" required:"true"`
	MaxConns        int32         `envconfig:"DB_MAX_CONNS" default:"20"`
	MinConns        int32         `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"1h"`
	AutoMigrate     bool          `envconfig:"DB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

type AuthConfig struct {
	// JWTSecret verifies HS256 tokens. JWKSURL, when set, verifies provider-issued RS256 tokens.
	JWTSecret string `envconfig:"JWT_SECRET"`
	JWKSURL   string `envconfig:"AUTH_JWKS_URL"`
	Issuer    string `envconfig:"AUTH_ISSUER"`
	Audience  string `envconfig:"AUTH_AUDIENCE" default:"authenticated"`
}

type StorageConfig struct {
	Endpoint   string        `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKey  string        `envconfig:"MINIO_ACCESS_KEY"`
	SecretKey  string        `envconfig:"MINIO_SECRET_KEY"`
	UseSSL     bool          `envconfig:"MINIO_USE_SSL" default:"false"`
	Bucket     string        `envconfig:"MINIO_BUCKET" default:"warehousepos"`
	PresignTTL time.Duration `envconfig:"MINIO_PRESIGN_TTL" default:"1h"`
}

type SMSConfig struct {
	MNotifyBaseURL string        `envconfig:"MNOTIFY_BASE_URL" default:"https://api.mnotify.com/api"`
	MNotifyAPIKey  string        `envconfig:"MNOTIFY_API_KEY"`
	MNotifySender  string        `envconfig:"MNOTIFY_SENDER_ID" default:"WarehsePOS"`
	TermiiBaseURL  string        `envconfig:"TERMII_BASE_URL" default:"https://api.ng.termii.com/api"`
	TermiiAPIKey   string        `envconfig:"TERMII_API_KEY"`
	TermiiSender   string        `envconfig:"TERMII_SENDER_ID" default:"WarehsePOS"`
	HookSecret     string        `envconfig:"SMS_HOOK_SECRET"`
	Timeout        time.Duration `envconfig:"SMS_TIMEOUT" default:"10s"`
	RetryCount     int           `envconfig:"SMS_RETRY_COUNT" default:"2"`
	OTPLimit       int           `envconfig:"SMS_OTP_LIMIT" default:"5"`
	OTPWindow      time.Duration `envconfig:"SMS_OTP_WINDOW" default:"10m"`
}

type PaymentsConfig struct {
	WebhookSecret string `envconfig:"PAYSTACK_SECRET_KEY"`
}

type JobsConfig struct {
	AnalyticsInterval   time.Duration `envconfig:"JOB_ANALYTICS_INTERVAL" default:"5m"`
	LowStockInterval    time.Duration `envconfig:"JOB_LOW_STOCK_INTERVAL" default:"30m"`
	OrderExpiryInterval time.Duration `envconfig:"JOB_ORDER_EXPIRY_INTERVAL" default:"15m"`
	PendingOrderTTL     time.Duration `envconfig:"PENDING_ORDER_TTL" default:"24h"`
	RiderSweepInterval  time.Duration `envconfig:"JOB_RIDER_SWEEP_INTERVAL" default:"2m"`
	RiderStaleAfter     time.Duration `envconfig:"RIDER_STALE_AFTER" default:"10m"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DB.URL) == "" {
		return errors.New("config: DATABASE_URL is required")
	}
	if c.Auth.JWTSecret == "" && c.Auth.JWKSURL == "" {
		return errors.New("config: one of JWT_SECRET or AUTH_JWKS_URL is required")
	}
	if c.SMS.OTPLimit <= 0 {
		return errors.New("config: SMS_OTP_LIMIT must be positive")
	}
	if c.Jobs.PendingOrderTTL < time.Minute {
		return errors.New("config: PENDING_ORDER_TTL must be at least one minute")
	}
	return nil
}
