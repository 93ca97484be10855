package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"anastat/adapters/api"
	"anastat/adapters/postgres"
	"anastat/internal"
	"anastat/internal/config"
	"anastat/internal/errors"
	"anastat/internal/pipeline"
	"anastat/internal/rng"
	"anastat/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// initDatabase connects to PostgreSQL and ensures the schema exists.
// Returns a nil repository when no DATABASE_URL is configured, in which
// case the server runs without result persistence.
func initDatabase(ctx context.Context, appConfig *config.Config, logger *internal.Logger) (*sqlx.DB, ports.ResultRepository, error) {
	if appConfig.Database.URL == "" {
		logger.Warn("DATABASE_URL not set, running without result persistence")
		return nil, nil, nil
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", appConfig.Database.URL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to database")
	}

	db.SetMaxOpenConns(appConfig.Database.MaxOpenConns)
	db.SetMaxIdleConns(appConfig.Database.MaxIdleConns)
	db.SetConnMaxLifetime(appConfig.Database.ConnMaxLifetime)

	if err := postgres.InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, errors.Wrap(err, "schema initialization failed")
	}

	return db, postgres.NewResultRepository(db), nil
}

func main() {
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewDefaultLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, results, err := initDatabase(ctx, appConfig, logger)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	orchestrator := pipeline.NewOrchestrator(rng.NewSeeded(), logger, appConfig.Engine.MaxParallel)
	app := api.NewApp(orchestrator, results, logger)

	server := &http.Server{
		Addr:         ":" + appConfig.Server.Port,
		Handler:      http.TimeoutHandler(app, appConfig.Server.RequestTimeout, "request timed out"),
		ReadTimeout:  appConfig.Server.RequestTimeout,
		WriteTimeout: appConfig.Server.RequestTimeout,
	}

	go func() {
		logger.Info("listening on :%s", appConfig.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed: %v", err)
	}
}
