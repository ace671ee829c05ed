package config

// EnvPrefix is applied by envconfig when processing the top-level Config.
const EnvPrefix = "CHOWDASH"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv     = "CHOWDASH_APP_ENV"
	EnvPort       = "CHOWDASH_APP_PORT"
	EnvDBDSN      = "CHOWDASH_DB_DSN"
	EnvDBHost     = "CHOWDASH_DB_HOST"
	EnvDBUser     = "CHOWDASH_DB_USER"
	EnvDBName     = "CHOWDASH_DB_NAME"
	EnvRedisURL   = "CHOWDASH_REDIS_URL"
	EnvJWTSecret  = "CHOWDASH_JWT_SECRET"
	EnvJWTIssuer  = "CHOWDASH_JWT_ISSUER"
	EnvJWTExpMins = "CHOWDASH_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "CHOWDASH_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic        = "CHOWDASH_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSubscription = "CHOWDASH_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubTrackingTopic      = "CHOWDASH_PUBSUB_TRACKING_TOPIC"
	EnvPubSubTrackingSub        = "CHOWDASH_PUBSUB_TRACKING_SUBSCRIPTION"
	EnvPubSubNotificationSub    = "CHOWDASH_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
