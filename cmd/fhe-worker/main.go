// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Command fhe-worker executes review and sign jobs from the queue. It needs
// only the bootstrap key; decryption keys stay with the data owner.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/fhe-ecdsa/internal/backend"
	"github.com/luxfi/fhe-ecdsa/internal/config"
	"github.com/luxfi/fhe-ecdsa/internal/metrics"
	"github.com/luxfi/fhe-ecdsa/internal/queue"
	"github.com/luxfi/fhe-ecdsa/internal/storage"
	"github.com/luxfi/fhe-ecdsa/internal/worker"
)

func main() {
	if err := newCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %+v\n", err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:           "fhe-worker",
		Short:         "Execute encrypted review and sign jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := config.BindFlags(cmd.Flags())
	cmd.Flags().BoolVar(&debug, "debug", false, "development logging at debug level")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := flags.Config()
		if err != nil {
			return err
		}
		log, err := zap.NewProduction()
		if debug {
			log, err = zap.NewDevelopment()
		}
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return run(ctx, cfg, log)
	}
	return cmd
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	log.Info("worker starting",
		zap.String("curve", cfg.Curve),
		zap.String("engine", cfg.Engine),
		zap.Int("workers", cfg.Workers),
		zap.String("redis", cfg.Redis.Addr),
		zap.String("storage", cfg.Storage.Kind))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	b, err := backend.Open(cfg, log)
	if err != nil {
		return err
	}
	svc, err := backend.Service(cfg, b, m, log)
	if err != nil {
		return err
	}

	q, err := queue.Open(ctx, queue.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Queue:    cfg.Redis.Queue,
	}, 1024)
	if err != nil {
		return errors.Wrap(err, "open queue")
	}
	defer q.Close()

	store, err := storage.New(cfg.Storage.Kind, cfg.Storage.Path, cfg.Storage.Capacity)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer store.Close()

	pool := worker.New(q, store, b.Codec, svc,
		worker.WithWorkers(cfg.Workers), worker.WithLogger(log), worker.WithMetrics(m))
	if err := pool.Start(ctx); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("metrics shutdown", zap.Error(err))
	}
	return pool.Stop(30 * time.Second)
}
