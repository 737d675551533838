// Package calendarsync assembles the calendar synchronizer and its queue from config.
package calendarsync

import (
	"context"
	"fmt"

	"showings/internal/calendarsync/calendar"
	"showings/internal/calendarsync/queue"
	"showings/internal/calendarsync/repository"
	"showings/internal/calendarsync/service"
	"showings/pkg/config"
	"showings/pkg/kafka"
	kafka_config "showings/pkg/kafka/config"
	"showings/pkg/kafka/middleware"
	"showings/pkg/sealer"
)

type Components struct {
	Synchronizer *service.Synchronizer
	Credentials  repository.CredentialRepository
	TokenCache   repository.TokenCache
}

// New builds the synchronizer. cfg.Client must already hold a Mongo connection; Redis is
// used for the token cache when connected.
func New(cfg *config.Config, showings service.ShowingStore, lots service.LotLookup) (*Components, error) {
	s, err := sealer.New(cfg.CredentialSealKey)
	if err != nil {
		return nil, fmt.Errorf("credential seal key: %w", err)
	}

	credentials := repository.NewMongoCredentialRepository(cfg, s)
	cache := repository.NoopTokenCache()
	if cfg.Client.Redis != nil {
		cache = repository.NewRedisTokenCache(cfg.Client.Redis, s, cfg.Log)
	}

	tokens := service.NewTokenProvider(cfg, credentials, cache)
	sync := service.NewSynchronizer(showings, lots, credentials, tokens, calendar.NewGoogleFactory(), cfg)

	return &Components{Synchronizer: sync, Credentials: credentials, TokenCache: cache}, nil
}

// NewQueue returns the queue selected by cfg.CalendarSyncQueue. The memory queue runs
// handle in-process; the Kafka queue only publishes.
func NewQueue(cfg *config.Config, handle queue.Handler, source string) (queue.Queue, error) {
	switch cfg.CalendarSyncQueue {
	case config.QueueKafka:
		producer, err := NewProducer(cfg, nil)
		if err != nil {
			return nil, err
		}
		return queue.NewKafkaQueue(producer, source, cfg.Log), nil
	default:
		q := queue.NewMemoryQueue(cfg.CalendarSyncWorkers, cfg.CalendarSyncQueueSize, cfg.CalendarSyncTimeout, handle, cfg.Log)
		q.Start()
		return q, nil
	}
}

// NewProducer connects a producer to the sync topic. metrics may be nil.
func NewProducer(cfg *config.Config, metrics *middleware.Metrics) (*kafka.Producer, error) {
	kcfg, err := kafka_config.Load()
	if err != nil {
		return nil, err
	}
	kcfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kcfg, cfg.CalendarSyncTopic, cfg.CalendarSyncDLQTopic, cfg.Log)
	if err != nil {
		return nil, err
	}
	if kcfg.EnableMiddleware {
		producer.Use(middleware.LoggingProducerMiddleware(cfg.Log))
		if metrics != nil {
			producer.Use(metrics.ProducerMiddleware())
		}
	}
	return producer, nil
}

// NewConsumer connects a consumer group that runs handle for every sync task.
func NewConsumer(cfg *config.Config, handle queue.Handler, metrics *middleware.Metrics) (*kafka.Consumer, error) {
	kcfg, err := kafka_config.Load()
	if err != nil {
		return nil, err
	}
	kcfg.LogConfiguration(cfg.Log)

	consumer, err := kafka.NewConsumer(
		kcfg,
		cfg.CalendarSyncTopic,
		cfg.CalendarSyncGroupID,
		cfg.CalendarSyncDLQTopic,
		queue.NewKafkaHandler(handle, cfg.CalendarSyncTimeout, cfg.Log),
		cfg.Log,
	)
	if err != nil {
		return nil, err
	}
	if kcfg.EnableMiddleware {
		consumer.Use(middleware.LoggingConsumerMiddleware(cfg.Log))
		if metrics != nil {
			consumer.Use(metrics.ConsumerMiddleware())
		}
	}
	return consumer, nil
}

// CloseQueue drains q and logs a failure instead of returning it; used from shutdown hooks.
func CloseQueue(ctx context.Context, cfg *config.Config, q queue.Queue) {
	if err := q.Close(ctx); err != nil {
		cfg.Log.Error("Failed to close calendar sync queue", "error", err)
	}
}
