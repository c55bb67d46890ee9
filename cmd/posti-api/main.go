package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/PostiBox/config"
	"github.com/BearBump/PostiBox/internal/broker/kafka"
	"github.com/BearBump/PostiBox/internal/cache/rediscache"
	"github.com/BearBump/PostiBox/internal/services/shipments"
	"github.com/BearBump/PostiBox/internal/storage/pgshipment"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("failed to load config, %v", err))
	}

	httpAddr := cfg.PostiBox.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := cfg.PostiBox.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "posti-api"
	}
	topic := cfg.Kafka.ShipmentsUpdatedTopicName
	if topic == "" {
		topic = "shipments.updated"
	}
	cacheTTL := time.Duration(cfg.PostiBox.CurrentSnapshotTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}

	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
	st, err := pgshipment.New(connString)
	if err != nil {
		panic(err)
	}
	defer st.Close()

	redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
	rc := rediscache.New(redisAddr)

	// The API never talks to the carrier: it reads snapshots and applies
	// updates from the bus.
	svc := shipments.New(st, rc, nil, topic, cacheTTL)

	brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
	consumer := kafka.NewConsumer(brokers, topic, consumerGroup)
	defer func() { _ = consumer.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runPostiAPI(ctx, postiAPIOpts{
		httpAddr:      httpAddr,
		topic:         topic,
		consumerGroup: consumerGroup,
	}, svc, st, consumer); err != nil && err != context.Canceled {
		panic(err)
	}
}
