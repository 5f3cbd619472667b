package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	Downloads    DownloadsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SOUNDMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"SOUNDMARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SOUNDMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOUNDMARKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SOUNDMARKET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SOUNDMARKET_DB_DSN"`
	Driver string `envconfig:"SOUNDMARKET_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SOUNDMARKET_DB_HOST"`
	Port     int    `envconfig:"SOUNDMARKET_DB_PORT" default:"5432"`
	User     string `envconfig:"SOUNDMARKET_DB_USER"`
	Password string `envconfig:"SOUNDMARKET_DB_PASSWORD"`
	Name     string `envconfig:"SOUNDMARKET_DB_NAME"`
	SSLMode  string `envconfig:"SOUNDMARKET_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"SOUNDMARKET_SQLITE_PATH" default:"soundmarket.db"`

	MaxOpenConns    int           `envconfig:"SOUNDMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SOUNDMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SOUNDMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SOUNDMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SOUNDMARKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SOUNDMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"SOUNDMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOUNDMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOUNDMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOUNDMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOUNDMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOUNDMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOUNDMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SOUNDMARKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SOUNDMARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SOUNDMARKET_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SOUNDMARKET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SOUNDMARKET_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	// StripeEventTTL bounds how long a processed webhook event id is remembered in redis.
	StripeEventTTL time.Duration `envconfig:"SOUNDMARKET_EVENTING_STRIPE_EVENT_TTL" default:"720h"`
}

type StripeConfig struct {
	APIKey string `envconfig:"SOUNDMARKET_STRIPE_API_KEY"`
	Secret string `envconfig:"SOUNDMARKET_STRIPE_SECRET"`
	Env    string `envconfig:"SOUNDMARKET_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	Currency        string `envconfig:"SOUNDMARKET_CHECKOUT_CURRENCY" default:"usd"`
	FrontendBaseURL string `envconfig:"SOUNDMARKET_FRONTEND_BASE_URL" default:"http://localhost:3000"`
	SuccessPath     string `envconfig:"SOUNDMARKET_CHECKOUT_SUCCESS_PATH" default:"/payment/success"`
	CancelPath      string `envconfig:"SOUNDMARKET_CHECKOUT_CANCEL_PATH" default:"/payment/cancel"`
}

// SuccessURL returns the hosted-checkout success redirect. The provider substitutes the
// session id placeholder.
func (c CheckoutConfig) SuccessURL() string {
	return strings.TrimRight(c.FrontendBaseURL, "/") + c.SuccessPath + "?session_id={CHECKOUT_SESSION_ID}"
}

// CancelURL returns the hosted-checkout cancel redirect.
func (c CheckoutConfig) CancelURL() string {
	return strings.TrimRight(c.FrontendBaseURL, "/") + c.CancelPath
}

type DownloadsConfig struct {
	MaxPerItem int `envconfig:"SOUNDMARKET_DOWNLOADS_MAX_PER_ITEM" default:"3"`
}

// RateLimitConfig throttles the endpoints that open payment sessions. A zero window or
// limit disables the check.
type RateLimitConfig struct {
	SessionWindow    time.Duration `envconfig:"SOUNDMARKET_RATE_LIMIT_SESSION_WINDOW" default:"1m"`
	SessionIPLimit   int           `envconfig:"SOUNDMARKET_RATE_LIMIT_SESSION_IP" default:"30"`
	SessionUserLimit int           `envconfig:"SOUNDMARKET_RATE_LIMIT_SESSION_USER" default:"10"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"SOUNDMARKET_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"SOUNDMARKET_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic  string `envconfig:"SOUNDMARKET_PUBSUB_ORDERS_TOPIC" default:"soundmarket-order-events"`
	PayoutsTopic string `envconfig:"SOUNDMARKET_PUBSUB_PAYOUTS_TOPIC" default:"soundmarket-payout-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"SOUNDMARKET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"SOUNDMARKET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"SOUNDMARKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"SOUNDMARKET_OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"SOUNDMARKET_CRON_INTERVAL" default:"15m"`
	LockTTL         time.Duration `envconfig:"SOUNDMARKET_CRON_LOCK_TTL" default:"14m"`
	PendingOrderTTL time.Duration `envconfig:"SOUNDMARKET_PENDING_ORDER_TTL" default:"24h"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
