// Command load_duckdb bulk-loads the NPPES sample from the source bucket into DuckDB.
package main

import (
	"os"

	"datapipe/internal/cli"
	"datapipe/internal/stages"

	// register all backends with the storage factory.
	_ "datapipe/internal/storage/all"
)

func main() {
	os.Exit(cli.Main(stages.LoadObjectToDuckDB))
}
