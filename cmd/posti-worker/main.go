package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BearBump/PostiBox/config"
	"github.com/BearBump/PostiBox/internal/services/poller"
	"github.com/BearBump/PostiBox/internal/services/shipments"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("failed to load config, %v", err))
	}
	if len(cfg.Accounts) == 0 {
		panic("no accounts configured")
	}

	topic := cfg.Kafka.ShipmentsUpdatedTopicName
	if topic == "" {
		topic = "shipments.updated"
	}

	pollInterval := time.Duration(cfg.PostiBox.WorkerPollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 10 * time.Minute
	}
	rlPerMin := int64(cfg.PostiBox.WorkerRateLimitPerMinute)
	if rlPerMin <= 0 {
		rlPerMin = 6
	}
	cacheTTL := time.Duration(cfg.PostiBox.CurrentSnapshotTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}

	f := defaultWorkerFactories()

	repo, closeRepo, err := f.newStorage(cfg)
	if err != nil {
		panic(err)
	}
	defer closeRepo()

	svc := shipments.New(repo, f.newCache(cfg), f.newProducer(cfg), topic, cacheTTL)

	accounts := buildAccounts(cfg, f.newSession)
	p := poller.New(svc, accounts, f.newRateLimiter(cfg)).
		WithSettings(pollInterval, rlPerMin).
		WithBackoff(backoffFromConfig(cfg))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := runWorkerHTTPServer(ctx, workerHTTPOpts{
			httpAddr: cfg.PostiBox.WorkerHTTPAddr,
			poller:   p,
			cfg:      cfg,
		}); err != nil && err != context.Canceled {
			panic(err)
		}
	}()

	if err := p.Run(ctx); err != nil && err != context.Canceled {
		panic(err)
	}
}
