package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"backoffice-alerts/internal/alerts"
	"backoffice-alerts/internal/api"
	"backoffice-alerts/internal/backend"
	"backoffice-alerts/internal/config"
	"backoffice-alerts/internal/db"
	"backoffice-alerts/internal/events"
	"backoffice-alerts/internal/kafka"
	"backoffice-alerts/internal/logging"
	"backoffice-alerts/internal/models"
	"backoffice-alerts/internal/notification"
	"backoffice-alerts/internal/providers"
	"backoffice-alerts/internal/purchasing"
	"backoffice-alerts/internal/scheduler"
	"backoffice-alerts/internal/settings"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the alert engines, notification sink and HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			defer logger.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, logger *logging.Logger) error {
	// Connect to database
	var dbConn *db.DB
	if cfg.DB.DSN != "" {
		conn, err := db.New(ctx, cfg.DB.DSN)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer conn.Close()
		if err := conn.CreateSchema(ctx); err != nil {
			return fmt.Errorf("schema setup failed: %w", err)
		}
		dbConn = conn
		logger.Infof("Connected to database")
	}

	store, closeStore, err := preferenceStore(ctx, cfg, dbConn)
	if err != nil {
		return err
	}
	defer closeStore()

	// Notification sink
	ws := notification.NewWebSocketManager(logger)
	opts := []notification.Option{notification.WithWebSocket(ws)}
	var history api.NotificationHistory
	if dbConn != nil {
		opts = append(opts, notification.WithRecorder(dbConn))
		history = dbConn
	}
	if cfg.TelegramEnabled() {
		tg, err := providers.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.RateLimit, logger)
		if err != nil {
			return fmt.Errorf("telegram init failed: %w", err)
		}
		opts = append(opts, notification.WithForwarder(tg))
		logger.Infof("Forwarding danger notifications to Telegram chat %d", cfg.Telegram.ChatID)
	}
	sink := notification.New(logger, notification.Config{MaxVisible: cfg.Notification.MaxVisible}, opts...)
	sink.Start()
	defer sink.Close()

	// Engines and thresholds
	inventory := alerts.NewInventoryEngine(sink, models.DefaultInventoryThresholds(), logger)
	orders := alerts.NewOrderEngine(sink, models.DefaultOrderThresholds(), logger)
	prefs := settings.NewService(store, inventory, orders, sink, logger)
	prefs.Load(ctx)

	bus := events.NewBus(logger)
	defer inventory.Subscribe(bus)()
	defer orders.Subscribe(bus)()

	// Pollers
	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, cfg.Backend.RateLimit, logger)
	invPoller, ordPoller := newPollers(cfg, client, inventory, orders, logger)
	if err := invPoller.Start(ctx, cfg.Alerts.InventoryInterval); err != nil {
		return err
	}
	defer invPoller.Stop()
	if err := ordPoller.Start(ctx, cfg.Alerts.OrderInterval); err != nil {
		return err
	}
	defer ordPoller.Stop()

	drafts := purchasing.NewService(client, sink, logger)

	// Kafka event feed
	var wg sync.WaitGroup
	if cfg.Kafka.Broker != "" {
		consumer, err := kafka.NewConsumer(kafka.Config{
			Broker:  cfg.Kafka.Broker,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, bus, logger)
		if err != nil {
			return fmt.Errorf("kafka consumer init failed: %w", err)
		}
		defer func() {
			if err := consumer.Close(); err != nil {
				logger.Errorf("Kafka consumer close failed: %v", err)
			}
		}()
		consumer.Start(ctx, &wg)
		logger.Infof("Kafka consumer initialized with topic: %s", cfg.Kafka.Topic)
	}

	// Start API server
	router := api.NewRouter(api.Deps{
		Notifications:   sink,
		History:         history,
		Settings:        prefs,
		InventoryPoller: invPoller,
		OrderPoller:     ordPoller,
		Events:          bus,
		Drafts:          drafts,
		WebSocket:       ws,
	}, logger, cfg)
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.API.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	srv := &http.Server{
		Addr:              cfg.API.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Infof("Shutting down...")
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("API shutdown failed: %v", err)
	}
	ws.CloseAll()
	wg.Wait()
	logger.Infof("Service stopped")
	return nil
}

func preferenceStore(ctx context.Context, cfg config.Config, dbConn *db.DB) (settings.Store, func(), error) {
	noop := func() {}
	switch cfg.Preferences.Backend {
	case config.PreferencePostgres:
		return settings.NewPostgresStore(dbConn), noop, nil
	case config.PreferenceRedis:
		rs, err := settings.NewRedisStore(ctx, cfg.Redis.Addr)
		if err != nil {
			return nil, noop, fmt.Errorf("redis connection failed: %w", err)
		}
		return rs, func() { _ = rs.Close() }, nil
	default:
		return settings.NewMemoryStore(), noop, nil
	}
}

// newPollers bounds every run by the back-office timeout, so a hung request
// cannot hold the in-flight slot past one fetch.
func newPollers(cfg config.Config, client *backend.Client, inventory *alerts.InventoryEngine, orders *alerts.OrderEngine, logger *logging.Logger) (*scheduler.Poller, *scheduler.Poller) {
	timeout := cfg.Backend.Timeout
	return scheduler.New(alerts.InventoryEngineName, inventoryTask(client, inventory), timeout, logger),
		scheduler.New(alerts.OrderEngineName, orderTask(client, orders), timeout, logger)
}

// A failed fetch skips the run; engine state is left untouched.
func inventoryTask(client *backend.Client, engine *alerts.InventoryEngine) scheduler.Task {
	return func(ctx context.Context) error {
		items, err := client.ListInventoryItems(ctx)
		if err != nil {
			return err
		}
		engine.Poll(items)
		return nil
	}
}

func orderTask(client *backend.Client, engine *alerts.OrderEngine) scheduler.Task {
	return func(ctx context.Context) error {
		list, err := client.ListOrders(ctx)
		if err != nil {
			return err
		}
		engine.Poll(list)
		return nil
	}
}
