// Package storage keeps imported raw waste records in SQLite or PostgreSQL.
// Rows are stored as text exactly as imported so the same cleaning rules
// apply regardless of where the data was read from.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"wastedash/internal/core"
	"wastedash/internal/sources"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	return string(d)
}

func (d Dialect) placeholder(n int) string {
	if d == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

type Repository struct {
	db      *sql.DB
	dialect Dialect
	name    string
}

var _ sources.ImportableSource = (*Repository)(nil)

func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(DialectSQLite, dbPath, "sqlite:"+dbPath)
}

func NewPostgresRepository(dsn string) (*Repository, error) {
	return open(DialectPostgres, dsn, "postgres")
}

func open(dialect Dialect, dsn, name string) (*Repository, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if dialect == DialectSQLite {
		// A single writer avoids SQLITE_BUSY during imports.
		db.SetMaxOpenConns(1)
	}
	return &Repository{db: db, dialect: dialect, name: name}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Name() string { return r.name }

// Fingerprint combines row count and highest id. Imports replace every row
// and ids are never reused, so any import changes it.
func (r *Repository) Fingerprint(ctx context.Context) (string, error) {
	var count, maxID int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(MAX(id), 0) FROM waste_records`).Scan(&count, &maxID)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return fmt.Sprintf("%d-%d", count, maxID), nil
}

func (r *Repository) ReadRecords(ctx context.Context) ([]core.RawRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT line, category, weight, year FROM waste_records ORDER BY line, id`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []core.RawRecord
	for rows.Next() {
		var rec core.RawRecord
		if err := rows.Scan(&rec.Line, &rec.Category, &rec.Weight, &rec.Year); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// ImportRecords replaces all stored rows with records in one transaction.
func (r *Repository) ImportRecords(ctx context.Context, records []core.RawRecord) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM waste_records`); err != nil {
		return 0, fmt.Errorf("clear records: %w", err)
	}

	p := r.dialect.placeholder
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO waste_records (line, category, weight, year) VALUES (%s, %s, %s, %s)`,
		p(1), p(2), p(3), p(4)))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.Line, rec.Category, rec.Weight, rec.Year); err != nil {
			return 0, fmt.Errorf("insert line %d: %w", rec.Line, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Records imported",
		"backend", string(r.dialect),
		"count", len(records))
	return len(records), nil
}
