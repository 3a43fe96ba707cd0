package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	Stripe        StripeConfig
	Collaborators CollaboratorsConfig
	Sendgrid      SendgridConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Analytics     AnalyticsConfig
	Outbox        OutboxConfig
	Replay        ReplayConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GATEWAYSYNC_APP_ENV" required:"true"`
	Port         string `envconfig:"GATEWAYSYNC_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"GATEWAYSYNC_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GATEWAYSYNC_LOG_WARN_STACK" default:"false"`
	// CORSOrigins lists the admin dashboards allowed to call the replay API.
	CORSOrigins []string `envconfig:"GATEWAYSYNC_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"GATEWAYSYNC_DB_DSN"`

	Host     string `envconfig:"GATEWAYSYNC_DB_HOST"`
	Port     int    `envconfig:"GATEWAYSYNC_DB_PORT" default:"5432"`
	User     string `envconfig:"GATEWAYSYNC_DB_USER"`
	Password string `envconfig:"GATEWAYSYNC_DB_PASSWORD"`
	Name     string `envconfig:"GATEWAYSYNC_DB_NAME"`
	SSLMode  string `envconfig:"GATEWAYSYNC_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GATEWAYSYNC_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GATEWAYSYNC_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GATEWAYSYNC_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GATEWAYSYNC_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL            string        `envconfig:"GATEWAYSYNC_REDIS_URL"`
	Address        string        `envconfig:"GATEWAYSYNC_REDIS_ADDR"`
	Password       string        `envconfig:"GATEWAYSYNC_REDIS_PASSWORD"`
	DB             int           `envconfig:"GATEWAYSYNC_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"GATEWAYSYNC_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns   int           `envconfig:"GATEWAYSYNC_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout    time.Duration `envconfig:"GATEWAYSYNC_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"GATEWAYSYNC_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"GATEWAYSYNC_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"GATEWAYSYNC_REDIS_IDEMPOTENCY_TTL" default:"168h"`
}

// JWTConfig guards the admin surface (manual webhook replay).
type JWTConfig struct {
	Secret string `envconfig:"GATEWAYSYNC_JWT_SECRET"`
	Issuer string `envconfig:"GATEWAYSYNC_JWT_ISSUER" default:"gatewaysync"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GATEWAYSYNC_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey string `envconfig:"GATEWAYSYNC_STRIPE_API_KEY"`
	Secret string `envconfig:"GATEWAYSYNC_STRIPE_SECRET"`
	Env    string `envconfig:"GATEWAYSYNC_STRIPE_ENV" default:"test"`
	// WebhookSecret signs inbound events. An empty value is reported by the
	// webhook handler rather than at boot.
	WebhookSecret string `envconfig:"GATEWAYSYNC_STRIPE_WEBHOOK_SECRET"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CollaboratorsConfig struct {
	PackingSlipURL    string        `envconfig:"GATEWAYSYNC_PACKING_SLIP_URL"`
	ShippingLabelURL  string        `envconfig:"GATEWAYSYNC_SHIPPING_LABEL_URL"`
	ShippingRateURL   string        `envconfig:"GATEWAYSYNC_SHIPPING_RATE_URL"`
	FulfillmentURL    string        `envconfig:"GATEWAYSYNC_FULFILLMENT_BASE_URL"`
	HTTPTimeout       time.Duration `envconfig:"GATEWAYSYNC_COLLABORATOR_TIMEOUT" default:"10s"`
	OrderNotifyBCC    string        `envconfig:"GATEWAYSYNC_ORDER_NOTIFY_BCC"`
	StorefrontBaseURL string        `envconfig:"GATEWAYSYNC_STOREFRONT_BASE_URL"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"GATEWAYSYNC_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"GATEWAYSYNC_SENDGRID_FROM_EMAIL"`
	FromName    string `envconfig:"GATEWAYSYNC_SENDGRID_FROM_NAME" default:"Orders"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GATEWAYSYNC_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"GATEWAYSYNC_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic           string `envconfig:"GATEWAYSYNC_PUBSUB_DOMAIN_TOPIC" default:"gatewaysync-domain-events"`
	AnalyticsSubscription string `envconfig:"GATEWAYSYNC_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"gatewaysync-analytics"`
}

type BigQueryConfig struct {
	Dataset            string `envconfig:"GATEWAYSYNC_BIGQUERY_DATASET"`
	EventsTable        string `envconfig:"GATEWAYSYNC_BIGQUERY_EVENTS_TABLE" default:"webhook_events"`
	StatusChangesTable string `envconfig:"GATEWAYSYNC_BIGQUERY_STATUS_CHANGES_TABLE" default:"order_status_changes"`
}

// Enabled reports whether the analytics sink has enough configuration to run.
func (b BigQueryConfig) Enabled() bool {
	return strings.TrimSpace(b.Dataset) != "" && strings.TrimSpace(b.EventsTable) != ""
}

// AnalyticsConfig tunes the domain-event consumer.
type AnalyticsConfig struct {
	// DedupeTTL bounds how long a consumed event id is remembered.
	DedupeTTL              time.Duration `envconfig:"GATEWAYSYNC_ANALYTICS_DEDUPE_TTL" default:"72h"`
	MaxOutstandingMessages int           `envconfig:"GATEWAYSYNC_ANALYTICS_MAX_OUTSTANDING" default:"100"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GATEWAYSYNC_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GATEWAYSYNC_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GATEWAYSYNC_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type ReplayConfig struct {
	BatchSize   int           `envconfig:"GATEWAYSYNC_REPLAY_BATCH_SIZE" default:"25"`
	MaxAttempts int           `envconfig:"GATEWAYSYNC_REPLAY_MAX_ATTEMPTS" default:"5"`
	Interval    time.Duration `envconfig:"GATEWAYSYNC_REPLAY_INTERVAL" default:"5m"`
	// ManualLimit caps admin replay calls per client within ManualWindow.
	ManualLimit  int           `envconfig:"GATEWAYSYNC_REPLAY_MANUAL_LIMIT" default:"30"`
	ManualWindow time.Duration `envconfig:"GATEWAYSYNC_REPLAY_MANUAL_WINDOW" default:"1m"`
}

type CronConfig struct {
	LockTTL                 time.Duration `envconfig:"GATEWAYSYNC_CRON_LOCK_TTL" default:"15m"`
	RetentionInterval       time.Duration `envconfig:"GATEWAYSYNC_CRON_RETENTION_INTERVAL" default:"24h"`
	WebhookLogRetentionDays int           `envconfig:"GATEWAYSYNC_WEBHOOK_LOG_RETENTION_DAYS" default:"90"`
	OutboxRetentionDays     int           `envconfig:"GATEWAYSYNC_OUTBOX_RETENTION_DAYS" default:"30"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
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
