// Package worker runs the background snapshot jobs fed from the queue.
package worker

import (
	"context"
	"fmt"

	"wastedash/internal/amqp"
	"wastedash/internal/loader"
	"wastedash/internal/log"
	"wastedash/internal/metrics"
	"wastedash/internal/report"
)

type (
	// DatasetLoader returns the current dataset, re-parsing when the source changed.
	DatasetLoader interface {
		Load(ctx context.Context) (*loader.Dataset, error)
	}

	// SnapshotWriter persists a rendered snapshot.
	SnapshotWriter interface {
		Write(ctx context.Context, ds *loader.Dataset, req report.Request) (report.Manifest, error)
	}

	// Consumer delivers snapshot requests until ctx is done.
	Consumer interface {
		ConsumeSnapshots(ctx context.Context, handler amqp.Handler) error
	}
)

// SnapshotWorker renders dashboard snapshots requested over AMQP.
type SnapshotWorker struct {
	loader  DatasetLoader
	writer  SnapshotWriter
	metrics *metrics.Metrics
	logger  *log.Logger
}

func NewSnapshotWorker(l DatasetLoader, w SnapshotWriter, m *metrics.Metrics, logger *log.Logger) *SnapshotWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SnapshotWorker{
		loader:  l,
		writer:  w,
		metrics: m,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleSnapshot processes a single snapshot request.
func (w *SnapshotWorker) HandleSnapshot(ctx context.Context, msg *amqp.SnapshotRequest) (err error) {
	defer func() { w.metrics.ObserveSnapshot("write", err) }()

	w.logger.InfoContext(ctx, "Processing snapshot request",
		log.FieldJobID, msg.ID,
		log.FieldYearFrom, msg.From,
		log.FieldYearTo, msg.To,
		log.FieldCategories, msg.Categories)

	ds, err := w.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	manifest, err := w.writer.Write(ctx, ds, report.Request{
		ID:            msg.ID,
		Years:         msg.Years(),
		Categories:    msg.Categories,
		AllCategories: msg.AllCategories,
	})
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	w.logger.InfoContext(ctx, "Snapshot written",
		log.FieldJobID, manifest.ID,
		log.FieldFingerprint, manifest.Fingerprint,
		"files", len(manifest.Files))
	return nil
}

// Run consumes requests until ctx is cancelled. A clean shutdown returns nil.
func (w *SnapshotWorker) Run(ctx context.Context, c Consumer) error {
	if _, err := w.loader.Load(ctx); err != nil {
		// The queue may still hold work for a later, healthy source.
		w.logger.WarnContext(ctx, "Initial dataset load failed", log.FieldError, err)
	}
	err := c.ConsumeSnapshots(ctx, w.HandleSnapshot)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
