package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/talaikis/qbook/config"
	"github.com/talaikis/qbook/pkg/core"
	feedkafka "github.com/talaikis/qbook/pkg/feed/kafka"
	"github.com/talaikis/qbook/pkg/notify"
	"github.com/talaikis/qbook/pkg/otel"
	"github.com/talaikis/qbook/pkg/server"
	"github.com/talaikis/qbook/pkg/snapshot"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure global logger
	level, err := zerolog.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}

	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if cfg.Server.LogFormat == "pretty" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background()))
	defer cancel()

	// Initialize OpenTelemetry
	cleanup, err := otel.Init(otel.Config{
		ServiceName:      "qbook",
		ServiceVersion:   "1.0.0",
		Endpoint:         cfg.Otel.Endpoint,
		CollectorEnabled: cfg.Otel.CollectorEnabled,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize OpenTelemetry")
	}
	defer cleanup()

	// Create the book manager and one empty book per configured instrument
	manager := server.NewManager(cfg.Server.DepthLevels)
	for _, instrument := range cfg.Instruments {
		if _, err := manager.CreateBook(ctx, instrument); err != nil {
			logger.Fatal().Err(err).Str("instrument", instrument).Msg("Failed to create book")
		}
	}

	// Fan applied updates out to websocket clients and, when enabled, Kafka
	hub := server.NewHub(logger)
	defer hub.Close()
	manager.OnUpdate(hub.Broadcast)

	if cfg.Notify.Enabled {
		manager.OnUpdate(func(ctx context.Context, u server.Update) {
			bu := &notify.BookUpdate{
				Instrument:     u.Instrument,
				OrderID:        u.OrderID,
				Status:         u.Status,
				BestBid:        u.BestBid,
				HasBestBid:     u.HasBestBid,
				BestAsk:        u.BestAsk,
				HasBestAsk:     u.HasBestAsk,
				LastTradePrice: u.LastTradePrice,
				HasLastTrade:   u.HasLastTrade,
				Timestamp:      u.Timestamp,
			}
			if err := notify.Publish(ctx, bu); err != nil {
				logger.Warn().Err(err).Msg("Failed to publish book update")
			}
		})
	}

	// Consume order events from Kafka. A consumer error is fatal because a
	// book that silently stops applying events is worse than a dead process.
	consumer := feedkafka.NewConsumer(cfg.Feed.Brokers, cfg.Feed.Topic, cfg.Feed.GroupID, logger)
	defer consumer.Close()

	consumerErr := make(chan error, 1)
	go func() {
		// One topic carries one instrument's events, so everything from this
		// consumer goes to the first configured book.
		instrument := cfg.Instruments[0]
		consumerErr <- consumer.Run(ctx, func(ctx context.Context, ev *core.OrderEvent) error {
			_, err := manager.Apply(ctx, instrument, ev)
			return err
		})
	}()

	// Periodic depth snapshots to Redis
	if cfg.Snapshot.Enabled {
		writer, err := snapshot.NewWriter(ctx, cfg.Snapshot.Addr, manager, cfg.Server.DepthLevels, cfg.Snapshot.Interval, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect snapshot writer")
		}
		defer writer.Close()

		go func() {
			if err := writer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("Snapshot writer stopped")
			}
		}()
	}

	// HTTP server
	api := server.NewAPI(manager, hub, logger)
	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: api.Router(),
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.HTTPAddr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt or consumer failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
	case err := <-consumerErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Feed consumer failed, shutting down")
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("Shutdown complete")
}
