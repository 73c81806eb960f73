package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"casino/api"
	"casino/broadcast"
	"casino/config"
	"casino/database"
	"casino/events"
	"casino/metrics"
	"casino/repository"
	"casino/service"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	log.Info("Starting casino engine...")

	db, err := database.NewConnection(ctx, cfg.DatabaseURL, cfg.DatabasePoolMax)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established")

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	settlement := service.NewSettlementService(uowFactory)
	deposits := service.NewDepositService(uowFactory, cfg.StartingBalance, cfg.MinWithdrawal)
	reconciliation := service.NewReconciliationService(uowFactory)

	coordinator := service.NewRoundCoordinator(settlement, eventBus, service.RoundConfig{
		WaitDuration: cfg.RoundWaitDuration,
		TickInterval: cfg.RoundTickInterval,
		RestartDelay: cfg.RoundRestartDelay,
		Growth:       service.ExponentialGrowth(cfg.GrowthRate),
		Crash:        service.NewCrashSource(cfg.HouseEdge, cfg.MaxCrashMultiplier),
	})
	tiles := service.NewTileRegistry(settlement, service.TileConfig{
		BoardSize: cfg.TileBoardSize,
		MineCount: cfg.TileMineCount,
		Curve:     cfg.TileCurve,
	})

	metrics.Attach(eventBus)

	var publisher *broadcast.Publisher
	if cfg.NATSURL != "" {
		publisher, err = broadcast.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("failed to connect broadcast publisher: %w", err)
		}
		publisher.Attach(eventBus)
	} else {
		log.Warn("NATS_URL not set, live broadcast disabled")
	}

	go coordinator.Run(ctx)

	metricsSrv := metrics.StartServer(cfg.MetricsPort, func(ctx context.Context) error {
		return db.Ping(ctx)
	})
	log.WithField("port", cfg.MetricsPort).Info("Metrics server listening")

	router := api.NewRouter(coordinator, tiles, settlement, deposits, reconciliation)
	srv := api.NewServer(cfg.ListenAddr, router)

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("API server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("API server shutdown failed")
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Metrics server shutdown failed")
	}
	if publisher != nil {
		publisher.Close()
	}
	db.Close()

	log.Info("Shutdown completed")
	return nil
}
