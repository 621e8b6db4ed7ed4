// Package duckdb implements an embedded DuckDB storage.Repository on top of
// github.com/marcboeker/go-duckdb/v2. It reuses the database/sql repository
// for DDL, upserts and counts, and replaces bulk inserts with DuckDB's
// appender, which streams rows straight into the table's column storage.
package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"datapipe/internal/ddl"
	"datapipe/internal/etlerr"
	"datapipe/internal/storage"
	"datapipe/internal/storage/sqldb"

	duckdb "github.com/marcboeker/go-duckdb/v2"
)

// Config holds DuckDB repository configuration.
type Config struct {
	// Path is the database file. Empty or ":memory:" opens an in-memory database.
	Path string
	// BatchSize bounds rows per INSERT on the non-appender path.
	BatchSize int
}

// Repository is a DuckDB-backed storage.Repository.
type Repository struct {
	*sqldb.Repository
	path string
}

// newAppender is a seam over duckdb.NewAppenderFromConn.
var newAppender = duckdb.NewAppenderFromConn

// NewRepository opens (creating if needed) the DuckDB file at cfg.Path. The
// parent directory is created when missing.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	path := strings.TrimSpace(cfg.Path)
	if path == ":memory:" {
		path = ""
	}
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, etlerr.Configuration("duckdb.open", fmt.Errorf("create directory %s: %w", dir, err))
			}
		}
	}
	r, err := sqldb.Open(ctx, "duckdb", path, Dialect, cfg.BatchSize)
	if err != nil {
		return nil, nil, err
	}
	repo := &Repository{Repository: r, path: path}
	return repo, func() { r.Close() }, nil
}

// Path returns the database file path ("" for in-memory).
func (r *Repository) Path() string { return r.path }

// BulkInsert appends rows through DuckDB's appender when every column type
// is directly appendable, and falls back to batched INSERTs otherwise
// (e.g. DECIMAL columns).
func (r *Repository) BulkInsert(ctx context.Context, td ddl.TableDef, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if !appendable(td) {
		return r.Repository.BulkInsert(ctx, td, rows)
	}

	schema, table := splitFQN(td.FQN)
	conn, err := r.DB().Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("duckdb: acquire conn: %w", err)
	}
	defer conn.Close()

	var n int64
	err = conn.Raw(func(dc any) error {
		drv, ok := dc.(driver.Conn)
		if !ok {
			return fmt.Errorf("duckdb: unexpected driver connection %T", dc)
		}
		app, err := newAppender(drv, schema, table)
		if err != nil {
			return fmt.Errorf("duckdb: appender for %s: %w", td.FQN, err)
		}
		for i, row := range rows {
			if err := ctx.Err(); err != nil {
				_ = app.Close()
				return err
			}
			vals := make([]driver.Value, len(row))
			for j, v := range row {
				vals[j] = v
			}
			if err := app.AppendRow(vals...); err != nil {
				_ = app.Close()
				return fmt.Errorf("duckdb: append row %d: %w", i, err)
			}
			n++
		}
		// Close flushes buffered rows.
		if err := app.Close(); err != nil {
			return fmt.Errorf("duckdb: flush appender: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Printf("duckdb: appended %d rows into %s", n, td.FQN)
	return n, nil
}

// splitFQN splits "schema.table"; a bare name uses the default schema.
func splitFQN(fqn string) (schema, table string) {
	if i := strings.LastIndex(fqn, "."); i >= 0 {
		return fqn[:i], fqn[i+1:]
	}
	return "", fqn
}

var _ storage.Repository = (*Repository)(nil)
