package config

// EnvPrefix is handed to envconfig; every field carries an explicit DAMP_* tag so
// the prefixed lookup falls back to the tag name.
const EnvPrefix = "DAMP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "DAMP_APP_ENV"
	EnvPort         = "DAMP_APP_PORT"
	EnvLogLevel     = "DAMP_LOG_LEVEL"
	EnvLogWarnStack = "DAMP_LOG_WARN_STACK"
	EnvServiceKind  = "DAMP_SERVICE_KIND"

	EnvDBDSN      = "DAMP_DB_DSN"
	EnvDBDriver   = "DAMP_DB_DRIVER"
	EnvDBHost     = "DAMP_DB_HOST"
	EnvDBPort     = "DAMP_DB_PORT"
	EnvDBUser     = "DAMP_DB_USER"
	EnvDBPassword = "DAMP_DB_PASSWORD"
	EnvDBName     = "DAMP_DB_NAME"
	EnvDBSSLMode  = "DAMP_DB_SSLMODE"

	EnvRedisURL = "DAMP_REDIS_URL"

	EnvStripeAPIKey = "DAMP_STRIPE_API_KEY"
	EnvStripeSecret = "DAMP_STRIPE_SECRET"
	EnvStripeEnv    = "DAMP_STRIPE_ENV"

	EnvCheckoutSiteURL = "DAMP_CHECKOUT_SITE_URL"
	EnvCartTTL         = "DAMP_CART_TTL"

	EnvFirebaseAPIKey    = "DAMP_FIREBASE_API_KEY"
	EnvFirebaseProjectID = "DAMP_FIREBASE_PROJECT_ID"

	EnvVotesBackend       = "DAMP_VOTES_BACKEND"
	EnvVotesLocalFallback = "DAMP_VOTES_LOCAL_FALLBACK"

	EnvWaitlistBackend = "DAMP_WAITLIST_BACKEND"
	EnvWaitlistObject  = "DAMP_WAITLIST_OBJECT"

	EnvGCPProjectID = "DAMP_GCP_PROJECT_ID"
	EnvGCSBucket    = "DAMP_GCS_BUCKET_NAME"

	EnvEventsTransport     = "DAMP_EVENTS_TRANSPORT"
	EnvPubSubEventsTopic   = "DAMP_PUBSUB_EVENTS_TOPIC"
	EnvPubSubAnalyticsSub  = "DAMP_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvAMQPURL             = "DAMP_AMQP_URL"
	EnvAMQPExchange        = "DAMP_AMQP_EXCHANGE"
	EnvBigQueryDataset     = "DAMP_BIGQUERY_DATASET"
	EnvBigQueryEventsTable = "DAMP_BIGQUERY_EVENTS_TABLE"
	EnvBigQueryAttempts    = "DAMP_BIGQUERY_INSERT_ATTEMPTS"

	EnvMongoURI      = "DAMP_MONGO_URI"
	EnvMongoDatabase = "DAMP_MONGO_DATABASE"

	EnvSendgridAPIKey = "DAMP_SENDGRID_API_KEY"
	EnvSendgridFrom   = "DAMP_SENDGRID_FROM_EMAIL"

	EnvCampaignGoal     = "DAMP_CAMPAIGN_GOAL_UNITS"
	EnvCampaignDeadline = "DAMP_CAMPAIGN_DEADLINE"

	EnvAdminEmails = "DAMP_ADMIN_EMAILS"

	EnvUseSQLite   = "DAMP_USE_SQLITE"
	EnvAutoMigrate = "DAMP_AUTO_MIGRATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

const (
	BackendDB    = "db"
	BackendBlob  = "blob"
	BackendMongo = "mongo"

	TransportPubSub = "pubsub"
	TransportAMQP   = "amqp"
	TransportNone   = "none"
)
