package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/ecomworks/inventory-service/internal/config"
	"github.com/ecomworks/inventory-service/internal/consumer"
	httpdelivery "github.com/ecomworks/inventory-service/internal/delivery/http"
	"github.com/ecomworks/inventory-service/internal/messaging"
	"github.com/ecomworks/inventory-service/internal/messaging/kafka"
	"github.com/ecomworks/inventory-service/internal/repository"
	"github.com/ecomworks/inventory-service/internal/repository/postgres"
	"github.com/ecomworks/inventory-service/internal/repository/rediscache"
	"github.com/ecomworks/inventory-service/internal/service"
)

func main() {
	slog.SetLogLoggerLevel(slog.LevelDebug)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	// --- Database ---
	db, err := postgres.InitDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to init database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	var repo repository.InventoryRepository = postgres.NewInventoryRepository(db)

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		repo = rediscache.NewPriceCachingRepository(repo, client, cfg.PriceCacheTTL)
		slog.Info("Price cache enabled", "addr", cfg.RedisAddr)
	}

	// --- Kafka ---
	publisher, err := kafka.NewPublisher(cfg.KafkaBrokers, slog.Default())
	if err != nil {
		slog.Error("Failed to create Kafka publisher", "err", err)
		os.Exit(1)
	}
	defer publisher.Close()

	subscriber, err := kafka.NewSubscriber(cfg.KafkaBrokers, cfg.ConsumerGroup, slog.Default())
	if err != nil {
		slog.Error("Failed to create Kafka subscriber", "err", err)
		os.Exit(1)
	}
	defer subscriber.Close()

	eventPublisher := kafka.NewEventPublisher(publisher, cfg.PublishTimeout)

	// --- Services ---
	inventory := service.NewInventoryService(repo, eventPublisher)

	dispatcher := consumer.NewDispatcher(subscriber, publisher, cfg.DeadLetterTopic, consumer.RetryPolicy{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
	})
	consumer.NewOrderEventHandler(inventory).Register(dispatcher)

	// --- HTTP API ---
	mux := http.NewServeMux()
	httpdelivery.NewHandler(inventory).RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	// --- Start everything ---
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := dispatcher.Run(ctx, messaging.OrderTopics); err != nil {
			slog.Error("Dispatcher error", "err", err)
			cancel()
		}
	}()

	go func() {
		slog.Info("HTTP server starting", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	slog.Info("Order event consumers started", "topics", messaging.OrderTopics, "group", cfg.ConsumerGroup)

	<-ctx.Done()
	slog.Info("Shutting down...")
	if err := httpServer.Shutdown(context.Background()); err != nil {
		slog.Error("HTTP server shutdown error", "err", err)
	}
}
