// Package sqlite wires the SQLite backend into the storage factory. Callers
// obtain it through storage.New with Kind "sqlite"; registration happens in init.
package sqlite

import (
	"context"

	"datapipe/internal/ddl"
	"datapipe/internal/storage"
	sqliteddl "datapipe/internal/storage/sqlite/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid touching the filesystem.
var newRepository = NewRepository

// wrappedRepo adapts *sqlite.Repository to storage.Repository, adding a Close
// method that calls the cleanup function returned by NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

var _ storage.Repository = (*wrappedRepo)(nil)

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, BatchSize: cfg.BatchSize})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})

	storage.RegisterDDL("sqlite", func(td ddl.TableDef, mode storage.CreateMode) ([]string, error) {
		create, err := sqliteddl.BuildCreateTableSQL(td, mode == storage.CreateIfAbsent)
		if err != nil {
			return nil, err
		}
		if mode == storage.Replace {
			return []string{sqliteddl.BuildDropTableSQL(td.FQN), create}, nil
		}
		return []string{create}, nil
	})
}
