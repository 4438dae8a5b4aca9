// Package sources defines where raw waste records come from.
package sources

import (
	"context"

	"wastedash/internal/core"
)

// Ports for inbound adapters.
type (
	// Source yields raw records. Fingerprint changes whenever the underlying
	// data changes, so callers can cache parsed results on it.
	Source interface {
		Name() string
		Fingerprint(ctx context.Context) (string, error)
		ReadRecords(ctx context.Context) ([]core.RawRecord, error)
	}

	// RecordImporter replaces the stored raw records of a writable source.
	RecordImporter interface {
		ImportRecords(ctx context.Context, records []core.RawRecord) (int, error)
	}

	// ImportableSource is a source that can also be loaded by the import command.
	ImportableSource interface {
		Source
		RecordImporter
	}
)
