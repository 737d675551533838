package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"showings/pkg/client"
	"showings/pkg/logger"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	ShowingsStore        string
	PostgresDSN          string
	PostgresMaxOpenConns int

	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	MinShowingDuration time.Duration
	MaxShowingDuration time.Duration

	CalendarSyncEnabled   bool
	CalendarSyncQueue     string
	CalendarSyncWorkers   int
	CalendarSyncQueueSize int
	CalendarSyncTimeout   time.Duration
	CalendarSyncTopic     string
	CalendarSyncDLQTopic  string
	CalendarSyncGroupID   string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleTokenURL     string
	CalendarName       string
	CalendarTimeZone   string

	CredentialSealKey string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		ShowingsStore:        getEnvStr(EnvShowingsStore, DefaultShowingsStore),
		PostgresDSN:          getEnvStr(EnvPostgresDSN, DefaultPostgresDSN),
		PostgresMaxOpenConns: getEnvNum(EnvPostgresMaxOpenConns, DefaultPostgresMaxOpenConns),

		RedisEnabled:  getEnvBool(EnvRedisEnabled, DefaultRedisEnabled),
		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		MinShowingDuration: getEnvDuration(EnvMinShowingDuration, DefaultMinShowingDuration),
		MaxShowingDuration: getEnvDuration(EnvMaxShowingDuration, DefaultMaxShowingDuration),

		CalendarSyncEnabled:   getEnvBool(EnvCalendarSyncEnabled, DefaultCalendarSyncEnabled),
		CalendarSyncQueue:     getEnvStr(EnvCalendarSyncQueue, DefaultCalendarSyncQueue),
		CalendarSyncWorkers:   getEnvNum(EnvCalendarSyncWorkers, DefaultCalendarSyncWorkers),
		CalendarSyncQueueSize: getEnvNum(EnvCalendarSyncQueueSize, DefaultCalendarSyncQueueSize),
		CalendarSyncTimeout:   getEnvDuration(EnvCalendarSyncTimeout, DefaultCalendarSyncTimeout),
		CalendarSyncTopic:     getEnvStr(EnvCalendarSyncTopic, DefaultCalendarSyncTopic),
		CalendarSyncDLQTopic:  getEnvStr(EnvCalendarSyncDLQTopic, DefaultCalendarSyncDLQTopic),
		CalendarSyncGroupID:   getEnvStr(EnvCalendarSyncGroupID, DefaultCalendarSyncGroupID),

		GoogleClientID:     getEnvStr(EnvGoogleClientID, ""),
		GoogleClientSecret: getEnvStr(EnvGoogleClientSecret, ""),
		GoogleTokenURL:     getEnvStr(EnvGoogleTokenURL, DefaultGoogleTokenURL),
		CalendarName:       getEnvStr(EnvCalendarName, DefaultCalendarName),
		CalendarTimeZone:   getEnvStr(EnvCalendarTimeZone, DefaultCalendarTimeZone),

		CredentialSealKey: getEnvStr(EnvCredentialSealKey, ""),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	err := cfg.Validate()
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetPostgres() {
	cfg.Client.SetPostgres(cfg.Log, cfg.PostgresDSN, cfg.PostgresMaxOpenConns, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
}

// CalendarSyncActive reports whether showings are mirrored to the external calendar.
// Sync needs both the feature flag and OAuth client credentials.
func (cfg *Config) CalendarSyncActive() bool {
	return cfg.CalendarSyncEnabled && cfg.GoogleClientID != ""
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	switch cfg.ShowingsStore {
	case StoreMongo:
	case StorePostgres:
		if !regexp.MustCompile(`^postgres(ql)?://`).MatchString(cfg.PostgresDSN) {
			errors = append(errors, fmt.Sprintf("PostgresDSN must start with 'postgres://' or 'postgresql://', got: %s", redactURI(cfg.PostgresDSN)))
		}
		if cfg.PostgresMaxOpenConns <= 0 {
			errors = append(errors, fmt.Sprintf("PostgresMaxOpenConns must be positive, got: %d", cfg.PostgresMaxOpenConns))
		}
	default:
		errors = append(errors, fmt.Sprintf("ShowingsStore must be one of [mongo, postgres], got: %s", cfg.ShowingsStore))
	}

	if cfg.RedisEnabled && cfg.RedisAddr == "" {
		errors = append(errors, "RedisAddr cannot be empty when Redis is enabled")
	}
	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}

	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}
	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.MinShowingDuration <= 0 {
		errors = append(errors, fmt.Sprintf("MinShowingDuration must be positive, got: %s", cfg.MinShowingDuration))
	}
	if cfg.MaxShowingDuration < cfg.MinShowingDuration {
		errors = append(errors, fmt.Sprintf("MaxShowingDuration (%s) must be >= MinShowingDuration (%s)", cfg.MaxShowingDuration, cfg.MinShowingDuration))
	}

	if cfg.CalendarSyncQueue != QueueMemory && cfg.CalendarSyncQueue != QueueKafka {
		errors = append(errors, fmt.Sprintf("CalendarSyncQueue must be one of [memory, kafka], got: %s", cfg.CalendarSyncQueue))
	}
	if cfg.CalendarSyncWorkers <= 0 {
		errors = append(errors, fmt.Sprintf("CalendarSyncWorkers must be positive, got: %d", cfg.CalendarSyncWorkers))
	}
	if cfg.CalendarSyncQueueSize <= 0 {
		errors = append(errors, fmt.Sprintf("CalendarSyncQueueSize must be positive, got: %d", cfg.CalendarSyncQueueSize))
	}
	if cfg.CalendarSyncTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("CalendarSyncTimeout must be positive, got: %s", cfg.CalendarSyncTimeout))
	}
	if cfg.CalendarSyncQueue == QueueKafka && cfg.CalendarSyncTopic == "" {
		errors = append(errors, "CalendarSyncTopic cannot be empty when CalendarSyncQueue is kafka")
	}
	if _, err := time.LoadLocation(cfg.CalendarTimeZone); err != nil {
		errors = append(errors, fmt.Sprintf("CalendarTimeZone must be a valid IANA zone, got: %s", cfg.CalendarTimeZone))
	}

	if cfg.CalendarSyncActive() {
		if cfg.GoogleClientSecret == "" {
			errors = append(errors, "GoogleClientSecret cannot be empty when calendar sync is enabled")
		}
		key, err := base64.StdEncoding.DecodeString(cfg.CredentialSealKey)
		if err != nil || len(key) != 32 {
			errors = append(errors, "CredentialSealKey must be a base64 encoded 32 byte key when calendar sync is enabled")
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"showings_store", cfg.ShowingsStore,
		"postgres_dsn", redactURI(cfg.PostgresDSN),
		"redis_enabled", cfg.RedisEnabled,
		"redis_addr", cfg.RedisAddr,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"min_showing_duration", cfg.MinShowingDuration,
		"max_showing_duration", cfg.MaxShowingDuration,
		"calendar_sync_enabled", cfg.CalendarSyncEnabled,
		"calendar_sync_active", cfg.CalendarSyncActive(),
		"calendar_sync_queue", cfg.CalendarSyncQueue,
		"calendar_sync_workers", cfg.CalendarSyncWorkers,
		"calendar_sync_queue_size", cfg.CalendarSyncQueueSize,
		"calendar_sync_timeout", cfg.CalendarSyncTimeout,
		"calendar_sync_topic", cfg.CalendarSyncTopic,
		"google_client_id_set", cfg.GoogleClientID != "",
		"calendar_name", cfg.CalendarName,
		"calendar_timezone", cfg.CalendarTimeZone,
		"credential_seal_key_set", cfg.CredentialSealKey != "",
	)
}

func redactURI(uri string) string {
	credentialRegex := regexp.MustCompile(`^([a-z+]+://)[^:@/]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
