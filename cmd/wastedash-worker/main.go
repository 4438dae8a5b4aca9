// Command wastedash-worker renders dashboard snapshots requested over AMQP.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"wastedash/internal/amqp"
	"wastedash/internal/backend"
	"wastedash/internal/cli"
	"wastedash/internal/loader"
	"wastedash/internal/log"
	"wastedash/internal/metrics"
	"wastedash/internal/report"
	"wastedash/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentWorker)
	logger.Info("Starting wastedash-worker")

	if !cfg.SnapshotsEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	res, err := backend.NewFactory(logger).Create(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		res.Close()
		os.Exit(1)
	}
	defer client.Close()

	m := metrics.New()
	w := worker.NewSnapshotWorker(
		loader.New(res.Source, logger, m),
		report.NewWriter(cfg.SnapshotDir, cfg.YearAxis()),
		m,
		logger,
	)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	if err := w.Run(ctx, client); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		client.Close()
		res.Close()
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete", "snapshot_dir", cfg.SnapshotDir)
}
