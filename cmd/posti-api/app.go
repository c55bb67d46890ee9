package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/BearBump/PostiBox/internal/api/shipmentsapi"
	"github.com/BearBump/PostiBox/internal/broker/messages"
	"github.com/BearBump/PostiBox/internal/services/shipments"
	"github.com/go-chi/chi/v5"
)

type postiAPIOpts struct {
	httpAddr string

	topic         string
	consumerGroup string

	onListen func(httpAddr string)
}

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
}

func runPostiAPI(ctx context.Context, opts postiAPIOpts, svc *shipments.Service, history shipmentsapi.HistoryLister, consumer kafkaConsumer) error {
	api := shipmentsapi.New(svc, history)

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	if consumer != nil {
		go func() {
			slog.Info("kafka consumer started", "topic", opts.topic, "group", opts.consumerGroup)
			_ = consumer.Consume(ctx, func(_key, value []byte) error {
				var m messages.ShipmentsUpdated
				if err := json.Unmarshal(value, &m); err != nil {
					return err
				}
				return svc.ApplyUpdate(ctx, m)
			})
		}()
	}

	r := chi.NewRouter()
	r.Mount("/", api.Routes())

	srv := &http.Server{Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	slog.Info("HTTP API listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return ctx.Err()
}
