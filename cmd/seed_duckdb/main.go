// Command seed_duckdb creates the products table in the seed DuckDB file.
package main

import (
	"os"

	"datapipe/internal/cli"
	"datapipe/internal/stages"

	// register all backends with the storage factory.
	_ "datapipe/internal/storage/all"
)

func main() {
	os.Exit(cli.Main(stages.SeedAnalytical))
}
