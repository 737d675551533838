package main

import (
	"context"

	availabilityhandler "showings/internal/availability/handler"
	availabilityrepository "showings/internal/availability/repository"
	availabilityservice "showings/internal/availability/service"
	"showings/internal/calendarsync"
	synchandler "showings/internal/calendarsync/handler"
	syncservice "showings/internal/calendarsync/service"
	lothandler "showings/internal/lots/handler"
	lotrepository "showings/internal/lots/repository"
	lotservice "showings/internal/lots/service"
	lotvalidator "showings/internal/lots/validator"
	showinghandler "showings/internal/showings/handler"
	showingrepository "showings/internal/showings/repository"
	showingservice "showings/internal/showings/service"
	showingvalidator "showings/internal/showings/validator"
	"showings/pkg/app"
	"showings/pkg/config"
	"showings/pkg/contracts"

	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const ServiceName = "showings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	if cfg.ShowingsStore == config.StorePostgres {
		cfg.SetPostgres()
	}
	if cfg.RedisEnabled {
		cfg.SetRedis()
	}

	cfg.Log.Info("Starting Showings service", "store", cfg.ShowingsStore, "calendar_sync", cfg.CalendarSyncActive())
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(healthChecks(cfg), initHandlers(cfg, serverApp)...)
	serverApp.Run()
}

func initHandlers(cfg *config.Config, serverApp *app.Application) []contracts.Handler {
	lotRepo := lotrepository.NewMongoLotRepository(cfg)
	lotService := lotservice.NewLotService(lotRepo, lotvalidator.NewLotValidator(cfg.Log), cfg)

	var showingRepo showingrepository.ShowingRepository
	if cfg.ShowingsStore == config.StorePostgres {
		showingRepo = showingrepository.NewPostgresShowingRepository(cfg)
	} else {
		showingRepo = showingrepository.NewMongoShowingRepository(cfg)
	}

	handlers := []contracts.Handler{lothandler.NewLotHandler(lotService, cfg.Log)}

	var dispatcher showingservice.Dispatcher
	if cfg.CalendarSyncActive() {
		components, err := calendarsync.New(cfg, showingRepo, lotService)
		if err != nil {
			cfg.Log.Fatal("Failed to initialize calendar sync", "error", err)
		}
		queue, err := calendarsync.NewQueue(cfg, components.Synchronizer.Handle, ServiceName)
		if err != nil {
			cfg.Log.Fatal("Failed to initialize calendar sync queue", "error", err, "queue", cfg.CalendarSyncQueue)
		}
		dispatcher = queue
		serverApp.OnShutdown(func(ctx context.Context) {
			calendarsync.CloseQueue(ctx, cfg, queue)
			components.Synchronizer.Close()
		})

		credentials := syncservice.NewCredentialService(components.Credentials, components.TokenCache, components.Synchronizer, cfg)
		reconciler := syncservice.NewReconciler(showingRepo, queue, syncservice.DefaultReconcileBatch, cfg.Log)
		handlers = append(handlers, synchandler.NewCalendarSyncHandler(credentials, reconciler, cfg.Log))
		cfg.Log.Info("Calendar sync initialized", "queue", cfg.CalendarSyncQueue, "calendar", cfg.CalendarName)
	}

	showingService := showingservice.NewShowingService(
		showingRepo,
		lotService,
		dispatcher,
		showingvalidator.NewShowingValidator(cfg.Log),
		cfg,
	)
	ruleRepo := availabilityrepository.NewMongoRuleRepository(cfg)
	availabilityService := availabilityservice.NewAvailabilityService(ruleRepo, lotService, showingService, cfg)

	handlers = append(handlers,
		showinghandler.NewShowingHandler(showingService, cfg.Log),
		availabilityhandler.NewAvailabilityHandler(availabilityService, cfg.Log),
	)

	cfg.Log.Info("Showing service initialized", "database", cfg.MongoDatabaseName)
	return handlers
}

func healthChecks(cfg *config.Config) map[string]app.Check {
	checks := map[string]app.Check{
		"mongo": func(ctx context.Context) error {
			return cfg.Client.Mongo.Ping(ctx, readpref.Primary())
		},
	}
	if cfg.Client.Postgres != nil {
		checks["postgres"] = func(ctx context.Context) error {
			return cfg.Client.Postgres.PingContext(ctx)
		}
	}
	if cfg.Client.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return cfg.Client.Redis.Ping(ctx).Err()
		}
	}
	return checks
}
