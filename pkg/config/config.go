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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Delivery      DeliveryConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Paystack      PaystackConfig
	Flutterwave   FlutterwaveConfig
	FCM           FCMConfig
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
	Env          string `envconfig:"CHOWDASH_APP_ENV" required:"true"`
	Port         string `envconfig:"CHOWDASH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CHOWDASH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CHOWDASH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CHOWDASH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CHOWDASH_DB_DSN"`
	Driver string `envconfig:"CHOWDASH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CHOWDASH_DB_HOST"`
	LegacyPort     int    `envconfig:"CHOWDASH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CHOWDASH_DB_USER"`
	LegacyPassword string `envconfig:"CHOWDASH_DB_PASSWORD"`
	LegacyName     string `envconfig:"CHOWDASH_DB_NAME"`
	LegacySSLMode  string `envconfig:"CHOWDASH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CHOWDASH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CHOWDASH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CHOWDASH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CHOWDASH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CHOWDASH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CHOWDASH_REDIS_ADDR"`
	Password     string        `envconfig:"CHOWDASH_REDIS_PASSWORD"`
	DB           int           `envconfig:"CHOWDASH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CHOWDASH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CHOWDASH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CHOWDASH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CHOWDASH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CHOWDASH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CHOWDASH_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CHOWDASH_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CHOWDASH_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token TTL configured in minutes.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// PasswordConfig tunes the Argon2id parameters used for password and
// delivery-code hashing.
type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CHOWDASH_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CHOWDASH_ARGON_TIME" default:"1"`
	ArgonParallelism int `envconfig:"CHOWDASH_ARGON_PARALLELISM" default:"4"`
	ArgonSaltLen     int `envconfig:"CHOWDASH_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CHOWDASH_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	Window   time.Duration `envconfig:"CHOWDASH_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit  int           `envconfig:"CHOWDASH_RATE_LIMIT_IP_LIMIT" default:"60"`
	KeyLimit int           `envconfig:"CHOWDASH_RATE_LIMIT_KEY_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CHOWDASH_AUTO_MIGRATE" default:"false"`
}

// DeliveryConfig carries the business knobs of the delivery core.
type DeliveryConfig struct {
	MaxServiceRadiusKM  float64       `envconfig:"CHOWDASH_DELIVERY_MAX_RADIUS_KM" default:"5"`
	BaseFee             string        `envconfig:"CHOWDASH_DELIVERY_BASE_FEE" default:"500"`
	PerKMFee            string        `envconfig:"CHOWDASH_DELIVERY_PER_KM_FEE" default:"100"`
	NearDeliveryKM      float64       `envconfig:"CHOWDASH_DELIVERY_NEAR_KM" default:"0.5"`
	OTPTTL              time.Duration `envconfig:"CHOWDASH_DELIVERY_OTP_TTL" default:"10m"`
	EstimatedPrepTime   time.Duration `envconfig:"CHOWDASH_DELIVERY_ESTIMATED_PREP_TIME" default:"20m"`
	TrackingStaleCutoff time.Duration `envconfig:"CHOWDASH_DELIVERY_TRACKING_STALE_CUTOFF" default:"15m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CHOWDASH_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"CHOWDASH_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CHOWDASH_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"CHOWDASH_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription       string `envconfig:"CHOWDASH_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	TrackingTopic            string `envconfig:"CHOWDASH_PUBSUB_TRACKING_TOPIC" required:"true"`
	TrackingSubscription     string `envconfig:"CHOWDASH_PUBSUB_TRACKING_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"CHOWDASH_PUBSUB_NOTIFICATION_TOPIC" default:"cd-notification-events"`
	NotificationSubscription string `envconfig:"CHOWDASH_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CHOWDASH_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CHOWDASH_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CHOWDASH_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type PaystackConfig struct {
	SecretKey string `envconfig:"CHOWDASH_PAYSTACK_SECRET_KEY"`
	BaseURL   string `envconfig:"CHOWDASH_PAYSTACK_BASE_URL"`
}

type FlutterwaveConfig struct {
	SecretKey  string `envconfig:"CHOWDASH_FLUTTERWAVE_SECRET_KEY"`
	SecretHash string `envconfig:"CHOWDASH_FLUTTERWAVE_SECRET_HASH"`
	BaseURL    string `envconfig:"CHOWDASH_FLUTTERWAVE_BASE_URL"`
}

type FCMConfig struct {
	ProjectID string `envconfig:"CHOWDASH_FCM_PROJECT_ID"`
	BaseURL   string `envconfig:"CHOWDASH_FCM_BASE_URL"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
