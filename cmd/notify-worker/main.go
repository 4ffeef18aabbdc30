package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"staybook/internal/infra/broker/kafka"
	"staybook/internal/infra/config"
	mongodb "staybook/internal/infra/db/mongo"
	"staybook/internal/infra/notify"
	"staybook/internal/infra/obs"
)

// notify-worker consumes booking events and materializes in-app
// notifications for hosts and guests. It shares storage with the API
// server but runs as its own process so a broker hiccup never slows a
// booking request.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("dev").Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS is required for the notify worker")
		os.Exit(1)
	}
	if cfg.PersistenceMode != "mongo" {
		logger.Error("notify worker requires PERSISTENCE_MODE=mongo")
		os.Exit(1)
	}

	client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connect failed", "error", err)
		os.Exit(1)
	}

	handler := &notify.Handler{
		Listings:      mongodb.NewListingRepository(client.DB),
		Notifications: mongodb.NewNotificationStore(client.DB),
		Logger:        logger,
	}

	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.NotifyGroupID, nil, handler)
	if err != nil {
		logger.Error("kafka consumer init failed", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	topic := cfg.KafkaTopicPrefix + "booking.events.v1"
	logger.Info("notify worker starting", "topic", topic, "group", cfg.NotifyGroupID)
	if err := consumer.Run(ctx, []string{topic}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("notify worker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("notify worker stopped")
}
