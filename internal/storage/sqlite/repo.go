// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql and the pure-Go modernc driver. SQLite has no bulk-load API
// like Postgres COPY; batched multi-row INSERTs inside one transaction keep
// throughput acceptable for the volumes this pipeline moves.
package sqlite

import (
	"context"
	"strings"

	"datapipe/internal/etlerr"
	"datapipe/internal/storage/sqldb"
	sqliteddl "datapipe/internal/storage/sqlite/ddl"

	_ "modernc.org/sqlite"
)

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:pipeline.db?_pragma=foreign_keys(1)"
	//   ":memory:"
	DSN string

	// BatchSize bounds rows per multi-row INSERT.
	BatchSize int
}

// Dialect is the SQLite flavour of sqldb.Dialect.
var Dialect = sqldb.Dialect{
	Kind:      "sqlite",
	Quote:     sqliteddl.QuoteIdent,
	MapType:   sqliteddl.MapType,
	UpsertSQL: sqldb.OnConflictUpsertSQL,
	MaxParams: 32766,
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	*sqldb.Repository
}

// NewRepository opens a SQLite database and returns a Repository plus a
// Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, etlerr.Errorf(etlerr.KindConfiguration, "sqlite.open", "DSN must not be empty")
	}
	r, err := sqldb.Open(ctx, "sqlite", cfg.DSN, Dialect, cfg.BatchSize)
	if err != nil {
		return nil, nil, err
	}
	// SQLite serializes writers; a single connection also keeps ":memory:"
	// databases from fragmenting across the pool.
	r.DB().SetMaxOpenConns(1)
	_, _ = r.DB().ExecContext(ctx, "PRAGMA foreign_keys = ON;")

	repo := &Repository{Repository: r}
	return repo, func() { r.Close() }, nil
}
