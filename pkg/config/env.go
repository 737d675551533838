package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvShowingsStore        = "SHOWINGS_STORE"
	EnvPostgresDSN          = "POSTGRES_DSN"
	EnvPostgresMaxOpenConns = "POSTGRES_MAX_OPEN_CONNS"

	EnvRedisEnabled  = "REDIS_ENABLED"
	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvMinShowingDuration = "MIN_SHOWING_DURATION"
	EnvMaxShowingDuration = "MAX_SHOWING_DURATION"

	EnvCalendarSyncEnabled   = "CALENDAR_SYNC_ENABLED"
	EnvCalendarSyncQueue     = "CALENDAR_SYNC_QUEUE"
	EnvCalendarSyncWorkers   = "CALENDAR_SYNC_WORKERS"
	EnvCalendarSyncQueueSize = "CALENDAR_SYNC_QUEUE_SIZE"
	EnvCalendarSyncTimeout   = "CALENDAR_SYNC_TIMEOUT"
	EnvCalendarSyncTopic     = "CALENDAR_SYNC_TOPIC"
	EnvCalendarSyncDLQTopic  = "CALENDAR_SYNC_DLQ_TOPIC"
	EnvCalendarSyncGroupID   = "CALENDAR_SYNC_GROUP_ID"

	EnvGoogleClientID     = "GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret = "GOOGLE_CLIENT_SECRET"
	EnvGoogleTokenURL     = "GOOGLE_TOKEN_URL"
	EnvCalendarName       = "CALENDAR_NAME"
	EnvCalendarTimeZone   = "CALENDAR_TIMEZONE"

	EnvCredentialSealKey = "CREDENTIAL_SEAL_KEY"
)
