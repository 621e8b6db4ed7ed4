// Package postgres provides a Postgres-backed storage.Repository implementation.
// This adapter wires the Postgres backend into the storage-agnostic factory by
// registering a constructor at init time. Stages obtain a Repository via
// storage.New(...) without importing this package directly.
//
// The adapter also registers a DDL builder so that callers can prepare tables
// based only on the storage kind, without branching on the backend themselves.
package postgres

import (
	"context"

	"datapipe/internal/ddl"
	"datapipe/internal/storage"
	pgddl "datapipe/internal/storage/postgres/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

// wrappedRepo implements storage.Repository by delegating to the concrete
// *postgres.Repository while providing a Close method that calls the close
// function returned by NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Ensure wrappedRepo satisfies storage.Repository at compile time.
var _ storage.Repository = (*wrappedRepo)(nil)

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// buildDDL renders the statements that prepare td for mode.
func buildDDL(td ddl.TableDef, mode storage.CreateMode) ([]string, error) {
	create, err := pgddl.BuildCreateTableSQL(td, mode == storage.CreateIfAbsent)
	if err != nil {
		return nil, err
	}
	if mode == storage.Replace {
		return []string{pgddl.BuildDropTableSQL(td.FQN), create}, nil
	}
	return []string{create}, nil
}

// init registers the "postgres" backend with the storage factory and its DDL
// builder for storage kind "postgres".
func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDDL("postgres", buildDDL)
}
