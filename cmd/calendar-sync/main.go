package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"showings/internal/calendarsync"
	lotrepository "showings/internal/lots/repository"
	lotservice "showings/internal/lots/service"
	lotvalidator "showings/internal/lots/validator"
	showingrepository "showings/internal/showings/repository"
	"showings/pkg/config"
	"showings/pkg/kafka/middleware"
)

const (
	ServiceName     = "calendar-sync"
	metricsInterval = time.Minute
)

func main() {
	cfg := config.Load(ServiceName)
	if cfg.CalendarSyncQueue != config.QueueKafka {
		cfg.Log.Fatal("calendar-sync worker requires CALENDAR_SYNC_QUEUE=kafka", "queue", cfg.CalendarSyncQueue)
	}
	if !cfg.CalendarSyncActive() {
		cfg.Log.Fatal("Calendar sync is disabled or Google client id is missing")
	}
	cfg.SetMongo()
	if cfg.ShowingsStore == config.StorePostgres {
		cfg.SetPostgres()
	}
	if cfg.RedisEnabled {
		cfg.SetRedis()
	}
	defer cfg.GracefulShutdown()

	lotService := lotservice.NewLotService(lotrepository.NewMongoLotRepository(cfg), lotvalidator.NewLotValidator(cfg.Log), cfg)
	var showingRepo showingrepository.ShowingRepository
	if cfg.ShowingsStore == config.StorePostgres {
		showingRepo = showingrepository.NewPostgresShowingRepository(cfg)
	} else {
		showingRepo = showingrepository.NewMongoShowingRepository(cfg)
	}

	components, err := calendarsync.New(cfg, showingRepo, lotService)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize calendar sync", "error", err)
	}
	defer components.Synchronizer.Close()

	metrics := middleware.NewMetrics()
	consumer, err := calendarsync.NewConsumer(cfg, components.Synchronizer.Handle, metrics)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go logMetrics(ctx, cfg, metrics)

	cfg.Log.Info("Starting calendar sync worker", "topic", cfg.CalendarSyncTopic, "group_id", cfg.CalendarSyncGroupID)
	if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
		cfg.Log.Error("Consumer stopped", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	metrics.Log(cfg.Log)
	cfg.Log.Info("Calendar sync worker stopped")
}

func logMetrics(ctx context.Context, cfg *config.Config, metrics *middleware.Metrics) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.Log(cfg.Log)
		}
	}
}
