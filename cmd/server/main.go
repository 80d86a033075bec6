package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/projectdefense/scheduler/internal/app"
	"github.com/projectdefense/scheduler/internal/config"
	"github.com/projectdefense/scheduler/internal/controller"
	"github.com/projectdefense/scheduler/internal/repository"
	"github.com/projectdefense/scheduler/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("Failed to resolve timezone", zap.Error(err))
	}

	store := repository.NewStore(pool)
	clock := service.SystemClock()

	roomService := service.NewRoomService(store, logger)
	availabilityService := service.NewAvailabilityService(store, clock, loc, logger)
	bookingService := service.NewBookingService(store, clock, logger)
	enforcementService := service.NewEnforcementService(store, clock, logger)

	sweeper := app.NewSweeper(enforcementService, 24*time.Hour, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	handlers := controller.NewHandlers(roomService, availabilityService, bookingService, enforcementService, logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           controller.NewRouter(handlers),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Starting booking server",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("environment", cfg.Environment),
		zap.String("timezone", loc.String()),
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}
