// Package stages implements the six pipeline stages. Every stage takes the
// loaded configuration, checks the sections it depends on, opens its own
// clients and connections, and closes them before returning.
package stages

import (
	"context"
	"log"
	"strings"
	"time"

	"datapipe/internal/config"
	"datapipe/internal/dataset"
	"datapipe/internal/etlerr"
	"datapipe/internal/objectstore"
	"datapipe/internal/pipeline"
	"datapipe/internal/storage"
)

// Stage names, in execution order.
const (
	UploadToObjectStore   = "upload_to_object_store"
	LoadToRelational      = "load_to_relational"
	SeedAnalytical        = "seed_analytical"
	FetchAPIToObjectStore = "fetch_api_to_object_store"
	LoadObjectToDuckDB    = "load_object_to_duckdb"
	LoadObjectToSnowflake = "load_object_to_snowflake"
)

// Fixed object keys and table names.
const (
	EmployeeObjectKey = "employee_data.csv"
	EmployeesTable    = "employees"
	EmployeesKey      = "id"
	ProductsTable     = "main.products"
	APIPayloadSuffix  = "pokemon.json"
	NPPESObjectName   = "nppes_sample.csv"
	NPPESDuckDBTable  = "nppes_sample"
	NPPESWarehouse    = "NPPES_SAMPLE"
)

// Test seams.
var (
	newObjectStore = objectstore.New
	openRepository = storage.New
	now            = time.Now
)

// Func is the signature shared by every stage.
type Func func(ctx context.Context, cfg *config.Config) error

// Sequence returns the six stages bound to cfg, in order.
func Sequence(cfg *config.Config) []pipeline.Stage {
	bind := func(name, dest string, fn Func) pipeline.Stage {
		return pipeline.Stage{
			Name:        name,
			Destination: dest,
			Run:         func(ctx context.Context) error { return fn(ctx, cfg) },
		}
	}
	src := "s3://" + cfg.Source.Bucket + "/"
	return []pipeline.Stage{
		bind(UploadToObjectStore, "s3://"+cfg.ObjectStore.Bucket+"/"+EmployeeObjectKey, Upload),
		bind(LoadToRelational, cfg.Relational.Kind+" table "+EmployeesTable, Relational),
		bind(SeedAnalytical, cfg.Paths.DuckDBSeed+" table "+ProductsTable, Seed),
		bind(FetchAPIToObjectStore, src+objectstore.StaticKey(cfg.APIPrefix(), "*_"+APIPayloadSuffix), FetchAPI),
		bind(LoadObjectToDuckDB, cfg.Paths.DuckDBNPPES+" table "+NPPESDuckDBTable, DuckDB),
		bind(LoadObjectToSnowflake, "snowflake table "+NPPESWarehouse, Snowflake),
	}
}

// Lookup returns the stage function registered under name.
func Lookup(name string) (Func, bool) {
	fn, ok := map[string]Func{
		UploadToObjectStore:   Upload,
		LoadToRelational:      Relational,
		SeedAnalytical:        Seed,
		FetchAPIToObjectStore: FetchAPI,
		LoadObjectToDuckDB:    DuckDB,
		LoadObjectToSnowflake: Snowflake,
	}[name]
	return fn, ok
}

// rustfsStore opens the self-hosted store holding the employee CSV.
func rustfsStore(ctx context.Context, cfg *config.Config) (*objectstore.Client, error) {
	o := cfg.ObjectStore
	return newObjectStore(ctx, objectstore.Config{
		Endpoint:     o.Endpoint,
		Region:       o.Region,
		AccessKey:    o.AccessKey,
		SecretKey:    o.SecretKey,
		UsePathStyle: true,
		Timeout:      cfg.Runtime.ObjectStoreTimeout,
	})
}

// sourceStore opens the cloud bucket holding the NPPES sample and receiving
// API payloads.
func sourceStore(ctx context.Context, cfg *config.Config) (*objectstore.Client, error) {
	return newObjectStore(ctx, objectstore.Config{
		Region:  cfg.Source.Region,
		Profile: cfg.Source.Profile,
		Timeout: cfg.Runtime.ObjectStoreTimeout,
	})
}

// open connects to a repository. Backends classify bad settings as
// configuration errors; anything left unclassified failed while connecting.
func open(ctx context.Context, kind, dsn string, batch int) (storage.Repository, error) {
	repo, err := openRepository(ctx, storage.Config{Kind: kind, DSN: dsn, BatchSize: batch})
	if err != nil {
		if k := etlerr.KindOf(err); k != etlerr.KindUnknown {
			return nil, etlerr.Wrap(k, "stages.open", err)
		}
		return nil, etlerr.Transport("stages.open", err)
	}
	return repo, nil
}

// describe logs the shape of a freshly parsed dataset.
func describe(stage string, ds *dataset.Dataset, size int) {
	names := ds.ColumnNames()
	head := names
	if len(head) > 5 {
		head = head[:5]
	}
	log.Printf("%s: parsed %d bytes", stage, size)
	log.Printf("%s: Loaded %d rows x %d columns", stage, ds.NumRows(), ds.NumColumns())
	log.Printf("%s: columns: %s", stage, strings.Join(head, ", "))
}

// verifyCount checks that table holds exactly want rows after a bulk load.
func verifyCount(ctx context.Context, repo storage.Repository, stage, table string, want int64) error {
	got, err := repo.CountRows(ctx, table)
	if err != nil {
		return err
	}
	log.Printf("%s: %s now holds %d rows", stage, table, got)
	if got != want {
		return etlerr.Errorf(etlerr.KindData, "stages.verify", "%s holds %d rows, loaded %d", table, got, want)
	}
	return nil
}
