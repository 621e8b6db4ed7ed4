// Package storage contains the destination-agnostic contracts every loader
// writes through, plus the registry that maps a storage kind ("postgres",
// "duckdb", "snowflake", ...) to its backend constructor.
//
// Backends register themselves from init(); importing
// datapipe/internal/storage/all makes every built-in kind available.
package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"datapipe/internal/dataset"
	"datapipe/internal/ddl"
	"datapipe/internal/etlerr"
)

// ErrUnsupported is returned by backends for operations they do not offer,
// e.g. keyed upserts into the warehouse.
var ErrUnsupported = errors.New("storage: operation not supported by backend")

// CreateMode selects how a destination table is prepared before a load.
type CreateMode int

const (
	// CreateIfAbsent creates the table when missing and never alters an
	// existing one. Used by the upsert path.
	CreateIfAbsent CreateMode = iota
	// Replace drops any existing table and creates it fresh. Used by the
	// bulk path.
	Replace
)

func (m CreateMode) String() string {
	if m == Replace {
		return "replace"
	}
	return "create_if_absent"
}

// Config is the backend-neutral connection description handed to factories.
type Config struct {
	// Kind selects the registered backend.
	Kind string
	// DSN is the driver connection string or file path.
	DSN string
	// BatchSize bounds rows per multi-row INSERT for backends without a
	// native bulk API. Zero means the backend default.
	BatchSize int
}

// Repository is a destination a loader can create tables in and write rows to.
// Rows passed to Upsert and BulkInsert are aligned to td.ColumnNames().
type Repository interface {
	// Kind returns the registered storage kind of the backend.
	Kind() string
	// MapType maps an inferred column type to this backend's SQL type.
	MapType(t dataset.ColumnType, key bool) string
	// Upsert writes rows keyed on td's primary key; on conflict every
	// non-key column is overwritten. All rows commit together.
	Upsert(ctx context.Context, td ddl.TableDef, rows [][]any) (int64, error)
	// BulkInsert appends rows with the backend's fastest bulk primitive.
	BulkInsert(ctx context.Context, td ddl.TableDef, rows [][]any) (int64, error)
	// CountRows returns COUNT(*) for table.
	CountRows(ctx context.Context, table string) (int64, error)
	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	// Close releases connections.
	Close()
}

// Factory constructs a Repository from a Config.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	factoryMu sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind. It is typically
// called from a backend package's init().
func Register(kind string, f Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	factories[kind] = f
}

// New opens a Repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	factoryMu.RLock()
	f, ok := factories[cfg.Kind]
	factoryMu.RUnlock()
	if !ok {
		return nil, etlerr.Errorf(etlerr.KindConfiguration, "storage.new", "unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
