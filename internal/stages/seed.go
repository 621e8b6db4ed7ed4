package stages

import (
	"context"
	"log"

	"datapipe/internal/config"
	"datapipe/internal/ddl"
	"datapipe/internal/metrics"
	"datapipe/internal/storage"
)

// productsTable is the fixed shape of the seed table in DuckDB's default
// schema.
var productsTable = ddl.TableDef{
	FQN: ProductsTable,
	Columns: []ddl.ColumnDef{
		{Name: "id", SQLType: "INTEGER", Nullable: true},
		{Name: "name", SQLType: "VARCHAR", Nullable: true},
		{Name: "price", SQLType: "DECIMAL(10,2)", Nullable: true},
	},
}

var productRows = [][]any{
	{int64(1), "Laptop", 999.99},
	{int64(2), "Mouse", 25.50},
	{int64(3), "Keyboard", 75.00},
}

// Seed recreates main.products in the seed DuckDB file and writes the three
// product rows. Re-running leaves exactly three rows.
func Seed(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Require(config.SectionRuntime); err != nil {
		return err
	}
	repo, err := open(ctx, "duckdb", cfg.Paths.DuckDBSeed, cfg.Runtime.BatchSize)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := storage.EnsureTable(ctx, repo, productsTable, storage.Replace); err != nil {
		return err
	}
	n, err := repo.BulkInsert(ctx, productsTable, productRows)
	if err != nil {
		return err
	}
	metrics.RecordRows(cfg.Job, SeedAnalytical, "loaded", n)
	log.Printf("%s: wrote %d products to %s", SeedAnalytical, n, cfg.Paths.DuckDBSeed)
	return verifyCount(ctx, repo, SeedAnalytical, ProductsTable, int64(len(productRows)))
}
