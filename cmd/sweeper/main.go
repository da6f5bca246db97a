package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	borrowingapp "github.com/toolroom/backend/internal/application/borrowing"
	"github.com/toolroom/backend/internal/infrastructure/cache"
	"github.com/toolroom/backend/internal/infrastructure/config"
	"github.com/toolroom/backend/internal/infrastructure/event"
	"github.com/toolroom/backend/internal/infrastructure/logger"
	"github.com/toolroom/backend/internal/infrastructure/notification"
	"github.com/toolroom/backend/internal/infrastructure/persistence"
	"github.com/toolroom/backend/internal/infrastructure/scheduler"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log := logger.New(&cfg.Log)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("starting toolroom sweeper",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.Duration("sweep_interval", cfg.Scheduler.SweepInterval),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("error closing database", zap.Error(err))
		}
	}()

	if err := db.Migrate(); err != nil {
		log.Fatal("failed to migrate schema", zap.Error(err))
	}

	settings := cache.NewSettingsCache(
		cache.WithTTL(cfg.Settings.CacheTTL),
		cache.WithLogger(log),
	)
	defer settings.Close()

	bus := event.NewInMemoryEventBus(log)
	dispatcher := notification.NewLogDispatcher(log)
	bus.Subscribe(notification.NewWorkflowHandler(
		dispatcher,
		settings,
		cfg.Notify.VerifierUUIDs(),
		cfg.Notify.ApproverUUIDs(),
		log,
	))

	borrowingSvc := borrowingapp.NewService(
		persistence.NewGormBorrowingTransactionScope(db.DB), log)
	borrowingSvc.SetEventPublisher(bus)
	borrowingSvc.SetDispatcher(dispatcher)

	sweepScheduler := scheduler.NewOverdueSweepScheduler(
		scheduler.OverdueSweepSchedulerConfig{
			Enabled:      cfg.Scheduler.Enabled,
			Interval:     cfg.Scheduler.SweepInterval,
			SweepTimeout: 5 * time.Minute,
		},
		borrowingSvc,
		log,
	)

	ctx := context.Background()
	if err := bus.Start(ctx); err != nil {
		log.Fatal("failed to start event bus", zap.Error(err))
	}
	if err := sweepScheduler.Start(ctx); err != nil {
		log.Fatal("failed to start sweep scheduler", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := sweepScheduler.Stop(shutdownCtx); err != nil {
		log.Error("sweep scheduler shutdown failed", zap.Error(err))
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("event bus shutdown failed", zap.Error(err))
	}

	log.Info("toolroom sweeper stopped")
}
