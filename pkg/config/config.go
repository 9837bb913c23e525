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
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	Firebase     FirebaseConfig
	Votes        VotesConfig
	Waitlist     WaitlistConfig
	RateLimit    RateLimitConfig
	Admin        AdminConfig
	Campaign     CampaignConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	GCS          GCSConfig
	PubSub       PubSubConfig
	AMQP         AMQPConfig
	BigQuery     BigQueryConfig
	Mongo        MongoConfig
	Sendgrid     SendgridConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadSection fills a single section (for example FirebaseConfig) without the
// cross-section validation Load applies. Used by tools that only touch one dependency.
func LoadSection(dst any) error {
	if err := envconfig.Process(EnvPrefix, dst); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Votes.Backend {
	case BackendDB:
	case BackendMongo:
		if strings.TrimSpace(c.Mongo.URI) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvMongoURI, EnvVotesBackend, BackendMongo)
		}
	default:
		return fmt.Errorf("%s must be %q or %q", EnvVotesBackend, BackendDB, BackendMongo)
	}

	switch c.Waitlist.Backend {
	case BackendDB:
	case BackendBlob:
		if strings.TrimSpace(c.GCS.BucketName) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvGCSBucket, EnvWaitlistBackend, BackendBlob)
		}
	default:
		return fmt.Errorf("%s must be %q or %q", EnvWaitlistBackend, BackendDB, BackendBlob)
	}

	switch c.Eventing.Transport {
	case TransportNone:
	case TransportPubSub:
		if strings.TrimSpace(c.GCP.ProjectID) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvGCPProjectID, EnvEventsTransport, TransportPubSub)
		}
	case TransportAMQP:
		if strings.TrimSpace(c.AMQP.URL) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvAMQPURL, EnvEventsTransport, TransportAMQP)
		}
	default:
		return fmt.Errorf("%s must be one of %s, %s, %s", EnvEventsTransport, TransportPubSub, TransportAMQP, TransportNone)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"DAMP_APP_ENV" required:"true"`
	Port         string `envconfig:"DAMP_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DAMP_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DAMP_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DAMP_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DAMP_DB_DSN"`
	Driver string `envconfig:"DAMP_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DAMP_DB_HOST"`
	LegacyPort     int    `envconfig:"DAMP_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DAMP_DB_USER"`
	LegacyPassword string `envconfig:"DAMP_DB_PASSWORD"`
	LegacyName     string `envconfig:"DAMP_DB_NAME"`
	LegacySSLMode  string `envconfig:"DAMP_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"DAMP_SQLITE_PATH" default:"damp.db"`

	MaxOpenConns    int           `envconfig:"DAMP_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DAMP_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DAMP_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DAMP_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DAMP_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DAMP_REDIS_ADDR"`
	Password     string        `envconfig:"DAMP_REDIS_PASSWORD"`
	DB           int           `envconfig:"DAMP_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DAMP_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DAMP_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DAMP_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DAMP_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DAMP_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey string `envconfig:"DAMP_STRIPE_API_KEY"`
	Secret string `envconfig:"DAMP_STRIPE_SECRET"`
	Env    string `envconfig:"DAMP_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// Configured reports whether enough Stripe settings exist to talk to the API.
func (s StripeConfig) Configured() bool {
	return strings.TrimSpace(s.APIKey) != "" && strings.TrimSpace(s.Secret) != ""
}

type CheckoutConfig struct {
	SiteURL          string        `envconfig:"DAMP_CHECKOUT_SITE_URL" default:"http://localhost:3000"`
	SuccessPath      string        `envconfig:"DAMP_CHECKOUT_SUCCESS_PATH" default:"/pages/order-success.html"`
	CancelPath       string        `envconfig:"DAMP_CHECKOUT_CANCEL_PATH" default:"/pages/pre-sale-funnel.html"`
	SessionTTL       time.Duration `envconfig:"DAMP_CHECKOUT_SESSION_TTL" default:"30m"`
	AllowedCountries []string      `envconfig:"DAMP_CHECKOUT_ALLOWED_COUNTRIES" default:"US,CA,GB,AU,DE,FR,IT,ES,NL,BE,AT,CH"`
	Currency         string        `envconfig:"DAMP_CHECKOUT_CURRENCY" default:"usd"`
	CartTTL          time.Duration `envconfig:"DAMP_CART_TTL" default:"72h"`
}

type FirebaseConfig struct {
	APIKey    string `envconfig:"DAMP_FIREBASE_API_KEY"`
	ProjectID string `envconfig:"DAMP_FIREBASE_PROJECT_ID"`
}

// Configured reports whether the identity provider can be reached.
func (f FirebaseConfig) Configured() bool {
	return strings.TrimSpace(f.APIKey) != "" && strings.TrimSpace(f.ProjectID) != ""
}

type VotesConfig struct {
	Backend       string `envconfig:"DAMP_VOTES_BACKEND" default:"db"`
	LocalFallback bool   `envconfig:"DAMP_VOTES_LOCAL_FALLBACK" default:"true"`
}

type WaitlistConfig struct {
	Backend    string `envconfig:"DAMP_WAITLIST_BACKEND" default:"db"`
	ObjectName string `envconfig:"DAMP_WAITLIST_OBJECT" default:"damp-emails/waitlist.json"`
}

type RateLimitConfig struct {
	Window         time.Duration `envconfig:"DAMP_RATE_LIMIT_WINDOW" default:"1m"`
	AuthIPLimit    int           `envconfig:"DAMP_RATE_LIMIT_AUTH_IP_LIMIT" default:"20"`
	AuthEmailLimit int           `envconfig:"DAMP_RATE_LIMIT_AUTH_EMAIL_LIMIT" default:"5"`
	VoteIPLimit    int           `envconfig:"DAMP_RATE_LIMIT_VOTE_IP_LIMIT" default:"30"`
	WaitlistIP     int           `envconfig:"DAMP_RATE_LIMIT_WAITLIST_IP_LIMIT" default:"10"`
	WaitlistEmail  int           `envconfig:"DAMP_RATE_LIMIT_WAITLIST_EMAIL_LIMIT" default:"3"`
}

type AdminConfig struct {
	Emails []string `envconfig:"DAMP_ADMIN_EMAILS"`
}

// IsAdmin reports whether email belongs to the configured allow list.
func (a AdminConfig) IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, candidate := range a.Emails {
		if strings.ToLower(strings.TrimSpace(candidate)) == email {
			return true
		}
	}
	return false
}

type CampaignConfig struct {
	GoalUnits         int64     `envconfig:"DAMP_CAMPAIGN_GOAL_UNITS" default:"500"`
	ScarcityThreshold int64     `envconfig:"DAMP_CAMPAIGN_SCARCITY_THRESHOLD" default:"450"`
	Deadline          time.Time `envconfig:"DAMP_CAMPAIGN_DEADLINE" default:"2026-12-31T23:59:59Z"`
	PriceTier         string    `envconfig:"DAMP_CAMPAIGN_PRICE_TIER" default:"early_bird"`
	EarlyBird         bool      `envconfig:"DAMP_CAMPAIGN_EARLY_BIRD" default:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DAMP_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DAMP_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	Transport      string        `envconfig:"DAMP_EVENTS_TRANSPORT" default:"none"`
	IdempotencyTTL time.Duration `envconfig:"DAMP_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DAMP_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"DAMP_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DAMP_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"DAMP_GCS_BUCKET_NAME"`
}

type PubSubConfig struct {
	EventsTopic           string `envconfig:"DAMP_PUBSUB_EVENTS_TOPIC" default:"damp-events"`
	AnalyticsSubscription string `envconfig:"DAMP_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"damp-events-analytics"`
}

type AMQPConfig struct {
	URL      string `envconfig:"DAMP_AMQP_URL"`
	Exchange string `envconfig:"DAMP_AMQP_EXCHANGE" default:"damp.events"`
}

type BigQueryConfig struct {
	Dataset     string `envconfig:"DAMP_BIGQUERY_DATASET" default:"damp"`
	EventsTable string `envconfig:"DAMP_BIGQUERY_EVENTS_TABLE" default:"domain_events"`
	// InsertAttempts bounds streaming insert retries per event.
	InsertAttempts int `envconfig:"DAMP_BIGQUERY_INSERT_ATTEMPTS" default:"4"`
}

type MongoConfig struct {
	URI      string `envconfig:"DAMP_MONGO_URI"`
	Database string `envconfig:"DAMP_MONGO_DATABASE" default:"damp"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"DAMP_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"DAMP_SENDGRID_FROM_EMAIL" default:"orders@dampdrink.com"`
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
