// Command pipeline runs all six stages in order: upload to the object store,
// relational upsert, DuckDB seed, API fetch, DuckDB bulk load and Snowflake
// bulk load. It exits 1 on the first failure and 0 when every stage completes.
//
// Configuration comes from .env, an optional YAML file named by
// PIPELINE_CONFIG, and the process environment, in increasing precedence.
package main

import (
	"os"

	"datapipe/internal/cli"

	// register all backends with the storage factory.
	_ "datapipe/internal/storage/all"
)

func main() {
	os.Exit(cli.Main())
}
