package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "BLOGQNA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StoreBackendSQL   = "sql"
	StoreBackendMongo = "mongo"
)

const (
	EnvAppEnv = "BLOGQNA_APP_ENV"
	EnvPort   = "BLOGQNA_APP_PORT"

	EnvDBDSN  = "BLOGQNA_DB_DSN"
	EnvDBHost = "BLOGQNA_DB_HOST"
	EnvDBUser = "BLOGQNA_DB_USER"
	EnvDBName = "BLOGQNA_DB_NAME"

	EnvStoreBackend = "BLOGQNA_STORE_BACKEND"
	EnvMongoURI     = "BLOGQNA_MONGO_URI"
	EnvUseSQLite    = "BLOGQNA_USE_SQLITE"

	EnvRedisURL = "BLOGQNA_REDIS_URL"

	EnvJWTSecret               = "BLOGQNA_JWT_SECRET"
	EnvJWTIssuer               = "BLOGQNA_JWT_ISSUER"
	EnvJWTExpMins              = "BLOGQNA_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "BLOGQNA_REFRESH_TOKEN_TTL_MINUTES"
	EnvRealtimeAllowedOrigins  = "BLOGQNA_REALTIME_ALLOWED_ORIGINS"
	EnvRealtimeSendBuffer      = "BLOGQNA_REALTIME_SEND_BUFFER"
	EnvNotificationsRetention  = "BLOGQNA_NOTIFICATIONS_RETENTION_DAYS"
	EnvNotificationsBroadcastN = "BLOGQNA_NOTIFICATIONS_BROADCAST_CONCURRENCY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
