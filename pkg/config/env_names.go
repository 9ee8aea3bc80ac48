package config

// EnvPrefix is the envconfig prefix shared by every service binary.
const EnvPrefix = "DISPATCH"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "DISPATCH_APP_ENV"
	EnvPort     = "DISPATCH_APP_PORT"
	EnvLogLevel = "DISPATCH_LOG_LEVEL"

	EnvDBDSN      = "DISPATCH_DB_DSN"
	EnvDBHost     = "DISPATCH_DB_HOST"
	EnvDBPort     = "DISPATCH_DB_PORT"
	EnvDBUser     = "DISPATCH_DB_USER"
	EnvDBPassword = "DISPATCH_DB_PASSWORD"
	EnvDBName     = "DISPATCH_DB_NAME"

	EnvRedisURL = "DISPATCH_REDIS_URL"

	EnvJWTSecret  = "DISPATCH_JWT_SECRET"
	EnvJWTIssuer  = "DISPATCH_JWT_ISSUER"
	EnvJWTExpMins = "DISPATCH_JWT_EXPIRATION_MINUTES"

	EnvOSRMBaseURL = "DISPATCH_OSRM_BASE_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
