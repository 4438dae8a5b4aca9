// Command wastedash serves the waste collection dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"wastedash/internal/amqp"
	"wastedash/internal/backend"
	"wastedash/internal/cli"
	"wastedash/internal/config"
	apphttp "wastedash/internal/http"
	"wastedash/internal/loader"
	"wastedash/internal/log"
	"wastedash/internal/metrics"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger := cli.LoadAndValidateConfig()
	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited", log.FieldError, err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	m := metrics.New()

	res, err := backend.NewFactory(logger).Create(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Close(); err != nil {
			logger.Warn("Backend close failed", log.FieldError, err)
		}
	}()

	// The first load must succeed: there is nothing to serve without data.
	l := loader.New(res.Source, logger, m)
	ds, err := l.Load(context.Background())
	if err != nil {
		return fmt.Errorf("initial dataset load: %w", err)
	}
	logger.Info("Dataset loaded",
		log.NewFields().WithDataset(ds.Source, ds.Fingerprint, ds.Summary.Kept, ds.Summary.Dropped).ToSlice()...)

	var publisher apphttp.SnapshotPublisher
	if cfg.SnapshotsEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, snapshots disabled", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("Snapshot publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:         ":" + cfg.Port,
		Axis:         cfg.YearAxis(),
		CacheSize:    cfg.ViewCacheSize,
		CacheTTL:     cfg.ViewCacheTTL,
		RateLimitRPM: cfg.RateLimitRPM,
	}, l, publisher, m, logger)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting wastedash server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"year_axis", fmt.Sprintf("%d-%d", cfg.YearAxisStart, cfg.YearAxisEnd))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
	return nil
}
