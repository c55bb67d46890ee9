package main

import (
	"fmt"
	"time"

	"github.com/BearBump/PostiBox/config"
	"github.com/BearBump/PostiBox/internal/broker/kafka"
	"github.com/BearBump/PostiBox/internal/cache"
	"github.com/BearBump/PostiBox/internal/cache/rediscache"
	"github.com/BearBump/PostiBox/internal/integrations/posti"
	"github.com/BearBump/PostiBox/internal/services/poller"
	"github.com/BearBump/PostiBox/internal/services/shipments"
	"github.com/BearBump/PostiBox/internal/storage/pgshipment"
)

// Per-account display defaults, applied when the config leaves a policy
// field unset.
const (
	defaultLanguage           = "fi"
	defaultMaxShipments       = 5
	defaultStaleDayLimit      = 15
	defaultCompletedDaysShown = 3
)

type workerFactories struct {
	newStorage     func(cfg *config.Config) (shipments.Repository, func(), error)
	newProducer    func(cfg *config.Config) shipments.Producer
	newRateLimiter func(cfg *config.Config) poller.RateLimiter
	newCache       func(cfg *config.Config) cache.BytesCache
	newSession     func(acct config.AccountConfig, timeout time.Duration) shipments.Querier
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (shipments.Repository, func(), error) {
			sslMode := cfg.Database.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
			st, err := pgshipment.New(connString)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) shipments.Producer {
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers)
		},
		newRateLimiter: func(cfg *config.Config) poller.RateLimiter {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return rediscache.NewRateLimiter(redisAddr)
		},
		newCache: func(cfg *config.Config) cache.BytesCache {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return rediscache.New(redisAddr)
		},
		newSession: func(acct config.AccountConfig, timeout time.Duration) shipments.Querier {
			return posti.New(acct.Username, acct.Password, timeout)
		},
	}
}

func buildAccounts(cfg *config.Config, newSession func(config.AccountConfig, time.Duration) shipments.Querier) []shipments.Account {
	timeout := time.Duration(cfg.PostiBox.SessionTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = posti.DefaultTimeout
	}

	accounts := make([]shipments.Account, 0, len(cfg.Accounts))
	for _, ac := range cfg.Accounts {
		name := ac.Name
		if name == "" {
			name = ac.Username
		}

		language := ac.Language
		if language == "" {
			language = defaultLanguage
		}
		maxShipments := ac.MaxShipments
		if maxShipments <= 0 {
			maxShipments = defaultMaxShipments
		}
		staleLimit := ac.StaleShipmentDayLimit
		if staleLimit <= 0 {
			staleLimit = defaultStaleDayLimit
		}
		completedShown := ac.CompletedShipmentDaysShown
		if completedShown <= 0 {
			completedShown = defaultCompletedDaysShown
		}

		accounts = append(accounts, shipments.Account{
			Name:    name,
			Session: newSession(ac, timeout),
			Policy: shipments.Policy{
				Language:              language,
				PrioritizeUndelivered: ac.PrioritizeUndelivered,
				MaxShipments:          maxShipments,
				StaleDayLimit:         staleLimit,
				CompletedDaysShown:    completedShown,
			},
		})
	}
	return accounts
}

func backoffFromConfig(cfg *config.Config) poller.BackoffConfig {
	return poller.BackoffConfig{
		Step1: time.Duration(cfg.PostiBox.WorkerBackoff1Seconds) * time.Second,
		Step2: time.Duration(cfg.PostiBox.WorkerBackoff2Seconds) * time.Second,
		Step3: time.Duration(cfg.PostiBox.WorkerBackoff3Seconds) * time.Second,
		Step4: time.Duration(cfg.PostiBox.WorkerBackoff4Seconds) * time.Second,
	}
}
