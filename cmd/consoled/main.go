package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/james-6-23/new-api-tools-sub000/internal/app"
	"github.com/james-6-23/new-api-tools-sub000/internal/config"
	"github.com/james-6-23/new-api-tools-sub000/internal/database"
	"github.com/james-6-23/new-api-tools-sub000/internal/httpserver"
	"github.com/james-6-23/new-api-tools-sub000/internal/redisclient"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.Options{})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// The database is optional: without it the console runs with the action
	// journal disabled.
	var dbPool *pgxpool.Pool
	if cfg.Database.URL != "" {
		if err := database.RunMigrations(ctx, cfg.Database); err != nil {
			log.Fatalf("run migrations: %v", err)
		}
		dbPool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("connect database: %v", err)
		}
		defer dbPool.Close()
	}

	redisClient := redisclient.New(cfg.Redis)
	if err := redisclient.Ping(ctx, redisClient); err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer redisClient.Close()

	container, err := app.NewContainer(ctx, cfg, dbPool, redisClient)
	if err != nil {
		log.Fatalf("build container: %v", err)
	}
	if container.Observability != nil {
		defer container.Observability.Shutdown(ctx)
	}
	defer container.Sessions.Shutdown(context.Background())

	server, err := httpserver.New(container)
	if err != nil {
		log.Fatalf("construct server: %v", err)
	}

	if err := server.Listen(ctx); err != nil && err != context.Canceled {
		log.Fatalf("server stopped: %v", err)
	}
}
