package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"giftboard/api"
	"giftboard/config"
	"giftboard/database"
	"giftboard/events"
	"giftboard/notify"
	"giftboard/repository"
	"giftboard/service"
	"giftboard/worker"

	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// ConfigureLogging applies the configured level and formatter to the global logger
func ConfigureLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("logLevel", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// Run starts the HTTP service and blocks until ctx is cancelled
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.WithField("environment", cfg.Environment).Info("Starting giftboard...")

	if err := database.RunMigrationsWithURL(cfg.GetDatabaseURL()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), database.Options{MaxConns: cfg.DatabaseMaxConns})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established")

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	ledgerService := service.NewLedgerService(uowFactory)
	giftService := service.NewGiftService(uowFactory, cfg)
	leaderboardService := service.NewLeaderboardService(uowFactory)
	competitorService := service.NewCompetitorService(uowFactory)

	closeNotifiers, err := startNotifiers(ctx, cfg, eventBus)
	if err != nil {
		return err
	}
	defer closeNotifiers()

	stopSweeper := worker.NewOperationSweeper(giftService, cfg.IdempotencySweepInterval).Start(ctx)
	defer stopSweeper()

	handler := api.NewHandler(ledgerService, giftService, leaderboardService, competitorService, db)
	server := api.NewServer(cfg, api.NewRouter(handler, cfg))

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}
	if err := eventBus.Wait(shutdownCtx); err != nil {
		log.WithError(err).Warn("Event handlers still running at shutdown")
	}

	log.Info("Shutdown completed")
	return nil
}

// startNotifiers subscribes the optional NATS and Discord notifiers to the bus
func startNotifiers(ctx context.Context, cfg *config.Config, bus *events.Bus) (func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.NATSServers != "" {
		client := notify.NewNATSClient(cfg.NATSServers)
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := client.Connect(connectCtx)
		cancel()
		if err != nil {
			return nil, err
		}
		if err := client.EnsureGiftEventStream(); err != nil {
			client.Close()
			return nil, err
		}
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				log.WithError(err).Warn("Failed to close NATS client")
			}
		})
		notify.NewEventPublisher(client).Subscribe(bus)
	}

	if cfg.DiscordToken != "" {
		session, err := notify.NewDiscordSession(cfg.DiscordToken)
		if err != nil {
			closeAll()
			return nil, err
		}
		notify.NewDiscordAnnouncer(session, cfg.DiscordChannelID).Subscribe(bus)
		log.WithField("channelId", cfg.DiscordChannelID).Info("Discord gift announcements enabled")
	}

	return closeAll, nil
}
