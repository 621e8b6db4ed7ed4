// This adapter wires the MSSQL backend into the storage-agnostic factory.
package mssql

import (
	"context"

	"datapipe/internal/ddl"
	"datapipe/internal/storage"
	msddl "datapipe/internal/storage/mssql/ddl"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

var _ storage.Repository = (*wrappedRepo)(nil)

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, BatchSize: cfg.BatchSize})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDDL("mssql", buildDDL)
}

// wrappedRepo adapts *mssql.Repository to storage.Repository and provides Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

func (w *wrappedRepo) Close() { w.closeFn() }

func buildDDL(td ddl.TableDef, mode storage.CreateMode) ([]string, error) {
	create, err := msddl.BuildCreateTableSQL(td)
	if err != nil {
		return nil, err
	}
	if mode == storage.Replace {
		return []string{msddl.BuildDropTableSQL(td.FQN), create}, nil
	}
	return []string{create}, nil
}
