package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/order-fulfillment/internal/config"
	"github.com/vasiliy-maslov/order-fulfillment/internal/db"
	"github.com/vasiliy-maslov/order-fulfillment/internal/kafka"
	"github.com/vasiliy-maslov/order-fulfillment/internal/order"
	"github.com/vasiliy-maslov/order-fulfillment/internal/product"
	"github.com/vasiliy-maslov/order-fulfillment/internal/redisx"
	"github.com/vasiliy-maslov/order-fulfillment/internal/transport"
	"github.com/vasiliy-maslov/order-fulfillment/internal/user"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "order-fulfillment").Logger()

	log.Info().Msg("Order fulfillment service starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	postgres, err := db.New(context.Background(), cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer postgres.Close()

	if err := db.ApplyMigrations(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	var events order.EventPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := producer.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close kafka producer")
			}
		}()
		events = producer
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka producer enabled")
	}

	var statusCache order.StatusCache
	if cfg.Redis.Enabled {
		rdb := redisx.New(cfg.Redis.Addr)
		defer rdb.Close()
		statusCache = redisx.NewStatusCache(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis status cache enabled")
	}

	txManager := db.NewTxManager(postgres.Pool)
	orderRepo := order.NewRepository(postgres.Pool)
	productRepo := product.NewRepository(postgres.Pool)
	userRepo := user.NewRepository(postgres.Pool)

	orderSvc := order.NewService(txManager, orderRepo, productRepo, userRepo, events, statusCache)
	userSvc := user.NewService(userRepo)

	router := transport.NewRouter(orderSvc, userSvc, productRepo)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
