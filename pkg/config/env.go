package config

// EnvPrefix is passed to envconfig; every tag below carries the full name.
const EnvPrefix = "CIRCLEMART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv            = "CIRCLEMART_APP_ENV"
	EnvPort              = "CIRCLEMART_APP_PORT"
	EnvLogLevel          = "CIRCLEMART_LOG_LEVEL"
	EnvDBDSN             = "CIRCLEMART_DB_DSN"
	EnvDBDriver          = "CIRCLEMART_DB_DRIVER"
	EnvDBHost            = "CIRCLEMART_DB_HOST"
	EnvDBUser            = "CIRCLEMART_DB_USER"
	EnvDBPassword        = "CIRCLEMART_DB_PASSWORD"
	EnvDBName            = "CIRCLEMART_DB_NAME"
	EnvRedisURL          = "CIRCLEMART_REDIS_URL"
	EnvJWTSecret         = "CIRCLEMART_JWT_SECRET"
	EnvJWTIssuer         = "CIRCLEMART_JWT_ISSUER"
	EnvJWTExpMins        = "CIRCLEMART_JWT_EXPIRATION_MINUTES"
	EnvRefreshTTLMinutes = "CIRCLEMART_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCSBucket         = "CIRCLEMART_GCS_BUCKET_NAME"
	EnvCORSOrigins       = "CIRCLEMART_CORS_ALLOWED_ORIGINS"
	EnvCartDecrement     = "CIRCLEMART_CART_DECREMENT_STOCK_ON_APPROVAL"
	EnvReconcileSchedule = "CIRCLEMART_RECONCILE_SCHEDULE"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
