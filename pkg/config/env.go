package config

const (
	EnvPrefix = "SOUNDMARKET"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv     = "SOUNDMARKET_APP_ENV"
	EnvPort       = "SOUNDMARKET_APP_PORT"
	EnvDBDSN      = "SOUNDMARKET_DB_DSN"
	EnvDBHost     = "SOUNDMARKET_DB_HOST"
	EnvDBUser     = "SOUNDMARKET_DB_USER"
	EnvDBName     = "SOUNDMARKET_DB_NAME"
	EnvUseSQLite  = "SOUNDMARKET_USE_SQLITE"
	EnvRedisURL   = "SOUNDMARKET_REDIS_URL"
	EnvJWTSecret  = "SOUNDMARKET_JWT_SECRET"
	EnvJWTIssuer  = "SOUNDMARKET_JWT_ISSUER"
	EnvJWTExpMins = "SOUNDMARKET_JWT_EXPIRATION_MINUTES"

	EnvStripeAPIKey = "SOUNDMARKET_STRIPE_API_KEY"
	EnvStripeSecret = "SOUNDMARKET_STRIPE_SECRET"

	EnvFrontendBaseURL     = "SOUNDMARKET_FRONTEND_BASE_URL"
	EnvDownloadsMaxPerItem = "SOUNDMARKET_DOWNLOADS_MAX_PER_ITEM"
	EnvPendingOrderTTL     = "SOUNDMARKET_PENDING_ORDER_TTL"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
