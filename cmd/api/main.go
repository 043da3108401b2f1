package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/student-portal/student_portal/internal/config"
	"github.com/student-portal/student_portal/internal/infra"
	"github.com/student-portal/student_portal/internal/logging"
	"github.com/student-portal/student_portal/internal/notification"
	"github.com/student-portal/student_portal/internal/routes"
	"github.com/student-portal/student_portal/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	var db *pgxpool.Pool
	if cfg.StorageBackend == config.BackendPostgres {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := infra.RunMigrations(cfg.DatabaseURL, logger); err != nil {
			logger.Error("run migrations", "error", err)
			os.Exit(1)
		}
	}

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	deps := routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger}
	if cfg.KafkaEnabled() {
		kafkaNotifier := notification.NewKafkaNotifier(cfg.KafkaBroker, cfg.KafkaTopic)
		defer func() {
			if err := kafkaNotifier.Close(); err != nil {
				logger.Warn("close kafka writer", "error", err)
			}
		}()
		deps.Notifier = kafkaNotifier
		logger.Info("publishing student events", "broker", cfg.KafkaBroker, "topic", cfg.KafkaTopic)
	}

	srv, err := server.New(deps)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "address", cfg.Address(), "storage", cfg.StorageBackend, "bot_service", cfg.BotServiceURL)
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
