// Package loader moves a parsed dataset into a storage.Repository. It owns the
// table lifecycle for the two load paths:
//
//   - Upsert: create the table if absent, then insert-or-update every row
//     keyed on one column.
//   - Bulk: drop and recreate the table, then append every row with the
//     backend's bulk primitive.
//
// Column types are inferred once from the dataset and mapped through the
// repository's dialect, so the same dataset yields the same schema on every
// call.
package loader

import (
	"context"
	"fmt"
	"log"
	"time"

	"datapipe/internal/dataset"
	"datapipe/internal/ddl"
	"datapipe/internal/etlerr"
	"datapipe/internal/storage"
)

// Schema infers the destination table definition for ds on repo.
func Schema(repo storage.Repository, ds *dataset.Dataset, table, key string) (ddl.TableDef, error) {
	return ddl.Infer(table, ds.Descriptors(), key, repo.MapType)
}

// Upsert creates table if it does not exist and writes every row of ds,
// overwriting non-key columns of rows whose key already exists. An empty
// dataset still creates the table and returns 0.
func Upsert(ctx context.Context, repo storage.Repository, ds *dataset.Dataset, table, key string) (int64, error) {
	if key == "" {
		return 0, etlerr.Errorf(etlerr.KindConfiguration, "loader.upsert", "upsert into %s requires a key column", table)
	}
	td, err := Schema(repo, ds, table, key)
	if err != nil {
		return 0, err
	}
	if err := storage.EnsureTable(ctx, repo, td, storage.CreateIfAbsent); err != nil {
		return 0, err
	}
	if ds.NumRows() == 0 {
		log.Printf("loader: %s: no rows to upsert", table)
		return 0, nil
	}

	start := time.Now()
	n, err := repo.Upsert(ctx, td, ds.Rows())
	if err != nil {
		return 0, fmt.Errorf("loader: upsert into %s: %w", table, err)
	}
	log.Printf("loader: upserted %d rows into %s (kind=%s key=%s elapsed=%s)",
		n, table, repo.Kind(), key, time.Since(start).Truncate(time.Millisecond))
	return n, nil
}

// Bulk drops and recreates table from ds's inferred schema and appends every
// row. Running it twice with the same input leaves the same table contents.
func Bulk(ctx context.Context, repo storage.Repository, ds *dataset.Dataset, table string) (int64, error) {
	td, err := Schema(repo, ds, table, "")
	if err != nil {
		return 0, err
	}
	if err := storage.EnsureTable(ctx, repo, td, storage.Replace); err != nil {
		return 0, err
	}
	if ds.NumRows() == 0 {
		log.Printf("loader: %s: recreated empty", table)
		return 0, nil
	}

	start := time.Now()
	n, err := repo.BulkInsert(ctx, td, ds.Rows())
	if err != nil {
		return 0, fmt.Errorf("loader: bulk load into %s: %w", table, err)
	}
	log.Printf("loader: bulk loaded %d rows into %s (kind=%s elapsed=%s)",
		n, table, repo.Kind(), time.Since(start).Truncate(time.Millisecond))
	return n, nil
}
