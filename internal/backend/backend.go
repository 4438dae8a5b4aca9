// Package backend builds the configured record source.
package backend

import (
	"context"
	"fmt"

	"wastedash/internal/config"
	"wastedash/internal/log"
	"wastedash/internal/sources"
	"wastedash/internal/sources/csvfile"
	gsheet "wastedash/internal/sources/google"
	"wastedash/internal/sources/memory"
	"wastedash/internal/storage"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result contains the source and an optional cleanup function. Importer is
// set only for backends that accept imports.
type Result struct {
	Source   sources.Source
	Importer sources.RecordImporter
	Cleanup  CleanupFunc
}

// Close runs the cleanup function if any.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Type represents the type of backend
type Type string

const (
	CSV      Type = config.BackendCSV
	SQLite   Type = config.BackendSQLite
	Postgres Type = config.BackendPostgres
	Sheets   Type = config.BackendSheets
	Memory   Type = config.BackendMemory
)

func (t Type) String() string { return string(t) }

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case CSV, SQLite, Postgres, Sheets, Memory:
		return true
	default:
		return false
	}
}

// Factory creates sources based on configuration
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create opens the backend named by cfg.DataBackend.
func (f *Factory) Create(ctx context.Context, cfg *config.Config) (*Result, error) {
	t := Type(cfg.DataBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	switch t {
	case CSV:
		src := csvfile.New(cfg.DataFile, cfg.Delimiter())
		f.logger.Info("Initialized CSV backend", "path", cfg.DataFile)
		return &Result{Source: src}, nil

	case SQLite:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return &Result{Source: repo, Importer: repo, Cleanup: repo.Close}, nil

	case Postgres:
		repo, err := storage.NewPostgresRepository(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
		}
		f.logger.Info("Initialized PostgreSQL backend")
		return &Result{Source: repo, Importer: repo, Cleanup: repo.Close}, nil

	case Sheets:
		cli, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.Info("Initialized Google Sheets backend", "sheet", cfg.GoogleSheetName)
		return &Result{Source: cli}, nil

	default:
		store := memory.New()
		f.logger.Info("Initialized memory backend")
		return &Result{Source: store, Importer: store}, nil
	}
}
