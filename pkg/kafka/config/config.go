package kafka_config

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"showings/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

const (
	SASLNone        = ""
	SASLPlain       = "plain"
	SASLScramSHA256 = "scram-sha-256"
	SASLScramSHA512 = "scram-sha-512"
)

type Config struct {
	Brokers  []string
	ClientID string

	Security SecurityConfig
	Producer ProducerConfig
	Consumer ConsumerConfig

	EnableMiddleware bool
}

type SecurityConfig struct {
	TLS           bool
	SASLMechanism string
	Username      string
	Password      string
}

type ProducerConfig struct {
	MaxAttempts  int
	BatchTimeout time.Duration
	RequireAcks  int    // -1 all replicas, 0 none, 1 leader
	Compression  string // none, gzip, snappy, lz4, zstd
	Async        bool
}

type ConsumerConfig struct {
	StartOffset       int64 // -1 newest, -2 oldest
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	CommitInterval    time.Duration
	HeartbeatInterval time.Duration
	SessionTimeout    time.Duration
	RebalanceTimeout  time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Load reads the Kafka settings from the environment and validates them.
func Load() (*Config, error) {
	var brokers []string
	for _, broker := range strings.Split(getEnvStr(EnvKafkaBrokers, DefaultKafkaBrokers), ",") {
		brokers = append(brokers, strings.TrimSpace(broker))
	}

	cfg := &Config{
		Brokers:  brokers,
		ClientID: getEnvStr(EnvKafkaClientID, DefaultClientID),
		Security: SecurityConfig{
			TLS:           getEnvBool(EnvKafkaTLS, false),
			SASLMechanism: strings.ToLower(getEnvStr(EnvKafkaSASLMechanism, SASLNone)),
			Username:      getEnvStr(EnvKafkaSASLUsername, ""),
			Password:      getEnvStr(EnvKafkaSASLPassword, ""),
		},
		Producer: ProducerConfig{
			MaxAttempts:  getEnvInt(EnvKafkaProducerMaxAttempts, DefaultProducerMaxAttempts),
			BatchTimeout: getEnvDuration(EnvKafkaProducerBatchTimeout, DefaultProducerBatchTimeout),
			RequireAcks:  getEnvInt(EnvKafkaProducerRequireAcks, DefaultProducerRequireAcks),
			Compression:  getEnvStr(EnvKafkaProducerCompression, DefaultProducerCompression),
			Async:        getEnvBool(EnvKafkaProducerAsync, DefaultProducerAsync),
		},
		Consumer: ConsumerConfig{
			StartOffset:       int64(getEnvInt(EnvKafkaConsumerStartOffset, DefaultConsumerStartOffset)),
			MinBytes:          getEnvInt(EnvKafkaConsumerMinBytes, DefaultConsumerMinBytes),
			MaxBytes:          getEnvInt(EnvKafkaConsumerMaxBytes, DefaultConsumerMaxBytes),
			MaxWait:           getEnvDuration(EnvKafkaConsumerMaxWait, DefaultConsumerMaxWait),
			CommitInterval:    getEnvDuration(EnvKafkaConsumerCommitInterval, DefaultConsumerCommitInterval),
			HeartbeatInterval: getEnvDuration(EnvKafkaConsumerHeartbeatInterval, DefaultConsumerHeartbeatInterval),
			SessionTimeout:    getEnvDuration(EnvKafkaConsumerSessionTimeout, DefaultConsumerSessionTimeout),
			RebalanceTimeout:  getEnvDuration(EnvKafkaConsumerRebalanceTimeout, DefaultConsumerRebalanceTimeout),
			MaxRetries:        getEnvInt(EnvKafkaConsumerMaxRetries, DefaultConsumerMaxRetries),
			RetryBackoff:      getEnvDuration(EnvKafkaConsumerRetryBackoff, DefaultConsumerRetryBackoff),
		},
		EnableMiddleware: getEnvBool(EnvKafkaEnableMiddleware, DefaultEnableMiddleware),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(cfg.Brokers) == 0 {
		add("At least one Kafka broker is required")
	}
	for i, broker := range cfg.Brokers {
		if broker == "" {
			add("Broker %d cannot be empty", i)
		}
	}

	switch cfg.Security.SASLMechanism {
	case SASLNone:
	case SASLPlain, SASLScramSHA256, SASLScramSHA512:
		if cfg.Security.Username == "" || cfg.Security.Password == "" {
			add("SASL mechanism %s needs a username and password", cfg.Security.SASLMechanism)
		}
	default:
		add("SASLMechanism must be one of [plain, scram-sha-256, scram-sha-512], got: %s", cfg.Security.SASLMechanism)
	}

	p := cfg.Producer
	if p.MaxAttempts <= 0 {
		add("Producer.MaxAttempts must be positive, got: %d", p.MaxAttempts)
	}
	if p.BatchTimeout <= 0 {
		add("Producer.BatchTimeout must be positive, got: %s", p.BatchTimeout)
	}
	switch p.Compression {
	case "none", "gzip", "snappy", "lz4", "zstd":
	default:
		add("Producer.Compression must be one of [none, gzip, snappy, lz4, zstd], got: %s", p.Compression)
	}
	if p.RequireAcks < -1 || p.RequireAcks > 1 {
		add("Producer.RequireAcks must be -1, 0, or 1, got: %d", p.RequireAcks)
	}

	c := cfg.Consumer
	if c.StartOffset != kafka.FirstOffset && c.StartOffset != kafka.LastOffset {
		add("Consumer.StartOffset must be -1 (newest) or -2 (oldest), got: %d", c.StartOffset)
	}
	if c.MinBytes <= 0 || c.MaxBytes < c.MinBytes {
		add("Consumer byte limits must satisfy 0 < MinBytes <= MaxBytes, got: %d..%d", c.MinBytes, c.MaxBytes)
	}
	for name, d := range map[string]time.Duration{
		"MaxWait":           c.MaxWait,
		"CommitInterval":    c.CommitInterval,
		"HeartbeatInterval": c.HeartbeatInterval,
		"SessionTimeout":    c.SessionTimeout,
		"RebalanceTimeout":  c.RebalanceTimeout,
	} {
		if d <= 0 {
			add("Consumer.%s must be positive, got: %s", name, d)
		}
	}
	if c.MaxRetries < 0 {
		add("Consumer.MaxRetries cannot be negative, got: %d", c.MaxRetries)
	}
	if c.RetryBackoff < 0 {
		add("Consumer.RetryBackoff cannot be negative, got: %s", c.RetryBackoff)
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Mechanism returns the SASL mechanism, or nil when SASL is off.
func (s SecurityConfig) Mechanism() (sasl.Mechanism, error) {
	switch s.SASLMechanism {
	case SASLPlain:
		return plain.Mechanism{Username: s.Username, Password: s.Password}, nil
	case SASLScramSHA256:
		return scram.Mechanism(scram.SHA256, s.Username, s.Password)
	case SASLScramSHA512:
		return scram.Mechanism(scram.SHA512, s.Username, s.Password)
	default:
		return nil, nil
	}
}

func (s SecurityConfig) tlsConfig() *tls.Config {
	if !s.TLS {
		return nil
	}
	return &tls.Config{MinVersion: tls.VersionTLS12}
}

// Dialer is used by readers.
func (cfg *Config) Dialer() (*kafka.Dialer, error) {
	mechanism, err := cfg.Security.Mechanism()
	if err != nil {
		return nil, err
	}
	return &kafka.Dialer{
		ClientID:      cfg.ClientID,
		Timeout:       10 * time.Second,
		DualStack:     true,
		TLS:           cfg.Security.tlsConfig(),
		SASLMechanism: mechanism,
	}, nil
}

// Transport is used by writers.
func (cfg *Config) Transport() (*kafka.Transport, error) {
	mechanism, err := cfg.Security.Mechanism()
	if err != nil {
		return nil, err
	}
	return &kafka.Transport{
		ClientID:    cfg.ClientID,
		DialTimeout: 10 * time.Second,
		TLS:         cfg.Security.tlsConfig(),
		SASL:        mechanism,
	}, nil
}

func (cfg *Config) LogConfiguration(log *logger.Logger) {
	log.Info("Kafka configuration loaded",
		"brokers", cfg.Brokers,
		"client_id", cfg.ClientID,
		"tls", cfg.Security.TLS,
		"sasl_mechanism", cfg.Security.SASLMechanism,
		"producer", fmt.Sprintf("%+v", cfg.Producer),
		"consumer", fmt.Sprintf("%+v", cfg.Consumer),
		"enable_middleware", cfg.EnableMiddleware,
	)
}

func getEnvStr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultValue
}
