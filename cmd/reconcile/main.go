package main

import (
	"context"
	"time"

	"showings/internal/calendarsync"
	syncservice "showings/internal/calendarsync/service"
	lotrepository "showings/internal/lots/repository"
	lotservice "showings/internal/lots/service"
	lotvalidator "showings/internal/lots/validator"
	showingrepository "showings/internal/showings/repository"
	"showings/pkg/config"
)

const (
	JobName    = "calendar-reconcile"
	jobTimeout = 10 * time.Minute
)

// Re-enqueues every SCHEDULED showing with an external event or a recorded sync error.
// With the memory queue the tasks run in this process and the job waits for them.
func main() {
	cfg := config.Load(JobName)
	if !cfg.CalendarSyncActive() {
		cfg.Log.Info("Calendar sync is disabled, nothing to reconcile")
		return
	}
	cfg.SetMongo()
	if cfg.ShowingsStore == config.StorePostgres {
		cfg.SetPostgres()
	}
	if cfg.RedisEnabled {
		cfg.SetRedis()
	}

	err := reconcile(cfg)
	cfg.GracefulShutdown()
	if err != nil {
		cfg.Log.Fatal("Reconcile failed", "error", err)
	}
}

func reconcile(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	lotService := lotservice.NewLotService(lotrepository.NewMongoLotRepository(cfg), lotvalidator.NewLotValidator(cfg.Log), cfg)
	var showingRepo showingrepository.ShowingRepository
	if cfg.ShowingsStore == config.StorePostgres {
		showingRepo = showingrepository.NewPostgresShowingRepository(cfg)
	} else {
		showingRepo = showingrepository.NewMongoShowingRepository(cfg)
	}

	components, err := calendarsync.New(cfg, showingRepo, lotService)
	if err != nil {
		return err
	}
	defer components.Synchronizer.Close()

	queue, err := calendarsync.NewQueue(cfg, components.Synchronizer.Handle, JobName)
	if err != nil {
		return err
	}

	result, err := syncservice.NewReconciler(showingRepo, queue, syncservice.DefaultReconcileBatch, cfg.Log).Reconcile(ctx)
	calendarsync.CloseQueue(ctx, cfg, queue)
	if err != nil {
		return err
	}

	cfg.Log.Info("Reconcile completed",
		"scanned", result.Scanned,
		"enqueued", result.Enqueued,
		"failed", result.Failed,
		"truncated", result.Truncated,
	)
	return nil
}
