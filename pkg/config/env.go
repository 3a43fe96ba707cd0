package config

// EnvPrefix is handed to envconfig; every field carries an explicit name so
// the prefix only matters for unnamed fields.
const EnvPrefix = "GATEWAYSYNC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv               = "GATEWAYSYNC_APP_ENV"
	EnvPort                 = "GATEWAYSYNC_APP_PORT"
	EnvDBDSN                = "GATEWAYSYNC_DB_DSN"
	EnvDBHost               = "GATEWAYSYNC_DB_HOST"
	EnvDBPort               = "GATEWAYSYNC_DB_PORT"
	EnvDBUser               = "GATEWAYSYNC_DB_USER"
	EnvDBPassword           = "GATEWAYSYNC_DB_PASSWORD"
	EnvDBName               = "GATEWAYSYNC_DB_NAME"
	EnvRedisURL             = "GATEWAYSYNC_REDIS_URL"
	EnvStripeWebhookSecret  = "GATEWAYSYNC_STRIPE_WEBHOOK_SECRET"
	EnvStripeAPIKey         = "GATEWAYSYNC_STRIPE_API_KEY"
	EnvFulfillmentURL       = "GATEWAYSYNC_FULFILLMENT_BASE_URL"
	EnvCollaboratorTimeout  = "GATEWAYSYNC_COLLABORATOR_TIMEOUT"
	EnvBigQueryDataset      = "GATEWAYSYNC_BIGQUERY_DATASET"
	EnvReplayMaxAttempts    = "GATEWAYSYNC_REPLAY_MAX_ATTEMPTS"
	EnvRedisIdempotencyTTL  = "GATEWAYSYNC_REDIS_IDEMPOTENCY_TTL"
	EnvSendgridAPIKey       = "GATEWAYSYNC_SENDGRID_API_KEY"
	EnvSendgridFromEmail    = "GATEWAYSYNC_SENDGRID_FROM_EMAIL"
	EnvPubSubDomainTopic    = "GATEWAYSYNC_PUBSUB_DOMAIN_TOPIC"
	EnvGCPProjectID         = "GATEWAYSYNC_GCP_PROJECT_ID"
	EnvJWTSecret            = "GATEWAYSYNC_JWT_SECRET"
	EnvOutboxPublishBatchSz = "GATEWAYSYNC_OUTBOX_PUBLISH_BATCH_SIZE"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
