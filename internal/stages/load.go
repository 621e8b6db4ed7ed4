package stages

import (
	"context"
	"fmt"
	"log"

	"datapipe/internal/config"
	"datapipe/internal/dataset"
	"datapipe/internal/etlerr"
	"datapipe/internal/loader"
	"datapipe/internal/metrics"
	"datapipe/internal/objectstore"
	"datapipe/internal/storage"
	"datapipe/internal/storage/snowflake"
)

// Relational downloads employee_data.csv and upserts it into the employees
// table keyed on id.
func Relational(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Require(config.SectionObjectStore, config.SectionRelational, config.SectionRuntime); err != nil {
		return err
	}
	store, err := rustfsStore(ctx, cfg)
	if err != nil {
		return err
	}
	ds, err := fetchDataset(ctx, store, LoadToRelational, cfg.ObjectStore.Bucket, EmployeeObjectKey)
	if err != nil {
		return err
	}
	metrics.RecordRows(cfg.Job, LoadToRelational, "read", int64(ds.NumRows()))

	repo, err := open(ctx, cfg.Relational.Kind, cfg.RelationalDSN(), cfg.Runtime.BatchSize)
	if err != nil {
		return err
	}
	defer repo.Close()

	n, err := loader.Upsert(ctx, repo, ds, EmployeesTable, EmployeesKey)
	if err != nil {
		return err
	}
	metrics.RecordRows(cfg.Job, LoadToRelational, "upserted", n)
	log.Printf("%s: %d rows upserted into %s (%s)", LoadToRelational, n, EmployeesTable, repo.Kind())
	return nil
}

// DuckDB downloads the NPPES sample and bulk-loads it into the local DuckDB
// file, replacing any previous table.
func DuckDB(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Require(config.SectionSource, config.SectionRuntime); err != nil {
		return err
	}
	ds, err := fetchNPPES(ctx, cfg, LoadObjectToDuckDB)
	if err != nil {
		return err
	}

	repo, err := open(ctx, "duckdb", cfg.Paths.DuckDBNPPES, cfg.Runtime.BatchSize)
	if err != nil {
		return err
	}
	defer repo.Close()

	return bulk(ctx, cfg, repo, ds, LoadObjectToDuckDB, NPPESDuckDBTable)
}

// Snowflake downloads the NPPES sample, rewrites column names into warehouse
// identifiers and bulk-loads it into NPPES_SAMPLE.
func Snowflake(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Require(config.SectionSource, config.SectionSnowflake, config.SectionRuntime); err != nil {
		return err
	}
	s := cfg.Snowflake
	dsn, err := snowflake.BuildDSN(snowflake.Credentials{
		Account:   s.Account,
		User:      s.User,
		Password:  s.Password,
		Warehouse: s.Warehouse,
		Database:  s.Database,
		Schema:    s.Schema,
		Role:      s.Role,
	})
	if err != nil {
		return etlerr.Configuration("stages.snowflake", err)
	}

	ds, err := fetchNPPES(ctx, cfg, LoadObjectToSnowflake)
	if err != nil {
		return err
	}
	ds, err = ds.RenameColumns(dataset.WarehouseName)
	if err != nil {
		return err
	}
	log.Printf("%s: warehouse columns: %v", LoadObjectToSnowflake, ds.ColumnNames())

	repo, err := open(ctx, "snowflake", dsn, cfg.Runtime.BatchSize)
	if err != nil {
		return err
	}
	defer repo.Close()

	return bulk(ctx, cfg, repo, ds, LoadObjectToSnowflake, NPPESWarehouse)
}

func fetchNPPES(ctx context.Context, cfg *config.Config, stage string) (*dataset.Dataset, error) {
	store, err := sourceStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	key := objectstore.StaticKey(cfg.Source.Prefix, NPPESObjectName)
	ds, err := fetchDataset(ctx, store, stage, cfg.Source.Bucket, key)
	if err != nil {
		return nil, err
	}
	metrics.RecordRows(cfg.Job, stage, "read", int64(ds.NumRows()))
	return ds, nil
}

func fetchDataset(ctx context.Context, store *objectstore.Client, stage, bucket, key string) (*dataset.Dataset, error) {
	body, err := store.Download(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	ds, err := dataset.ReadCSV(body)
	if err != nil {
		return nil, fmt.Errorf("parse s3://%s/%s: %w", bucket, key, err)
	}
	describe(stage, ds, len(body))
	return ds, nil
}

func bulk(ctx context.Context, cfg *config.Config, repo storage.Repository, ds *dataset.Dataset, stage, table string) error {
	n, err := loader.Bulk(ctx, repo, ds, table)
	if err != nil {
		return err
	}
	metrics.RecordRows(cfg.Job, stage, "loaded", n)
	return verifyCount(ctx, repo, stage, table, n)
}
