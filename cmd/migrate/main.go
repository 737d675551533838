package main

import (
	"context"
	"time"

	mongoMigration "showings/internal/migrations/mongo"
	postgresMigration "showings/internal/migrations/postgres"
	"showings/pkg/config"
)

const JobName = "showings-migration"

func main() {
	cfg := config.Load(JobName)
	cfg.SetMongo()
	if cfg.ShowingsStore == config.StorePostgres {
		cfg.SetPostgres()
	}

	err := migrate(cfg)
	cfg.GracefulShutdown()
	if err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}

func migrate(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg.Log.Info("Starting migration job", "showings_store", cfg.ShowingsStore)

	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	if err := mongoMigration.RunMigration(ctx, db, cfg.Log); err != nil {
		return err
	}

	if cfg.Client.Postgres != nil {
		return postgresMigration.RunMigration(ctx, cfg.Client.Postgres, cfg.Log)
	}
	return nil
}
