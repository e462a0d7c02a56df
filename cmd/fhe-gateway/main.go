// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Command fhe-gateway serves the job API. Without --redis it runs an
// in-process queue together with an embedded worker pool.
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
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luxfi/fhe-ecdsa/internal/backend"
	"github.com/luxfi/fhe-ecdsa/internal/config"
	"github.com/luxfi/fhe-ecdsa/internal/metrics"
	"github.com/luxfi/fhe-ecdsa/internal/queue"
	"github.com/luxfi/fhe-ecdsa/internal/storage"
	"github.com/luxfi/fhe-ecdsa/internal/worker"
	"github.com/luxfi/fhe-ecdsa/server"
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
		Use:           "fhe-gateway",
		Short:         "Serve the encrypted approval and signing job API",
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
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

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

	var pool *worker.Pool
	if cfg.Redis.Addr == "" {
		m := metrics.New(reg)
		b, err := backend.Open(cfg, log)
		if err != nil {
			return err
		}
		svc, err := backend.Service(cfg, b, m, log)
		if err != nil {
			return err
		}
		pool = worker.New(q, store, b.Codec, svc,
			worker.WithWorkers(cfg.Workers), worker.WithLogger(log), worker.WithMetrics(m))
		if err := pool.Start(ctx); err != nil {
			return err
		}
		log.Info("embedded workers started", zap.Int("workers", cfg.Workers))
	}

	api := server.New(q, store, server.WithLogger(log), server.WithGatherer(reg))
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("gateway listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errc:
		log.Error("http server", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Warn("http shutdown", zap.Error(serr))
	}
	if pool != nil {
		if perr := pool.Stop(30 * time.Second); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}
