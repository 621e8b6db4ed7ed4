// Command load_snowflake bulk-loads the NPPES sample from the source bucket into Snowflake.
package main

import (
	"os"

	"datapipe/internal/cli"
	"datapipe/internal/stages"

	// register all backends with the storage factory.
	_ "datapipe/internal/storage/all"
)

func main() {
	os.Exit(cli.Main(stages.LoadObjectToSnowflake))
}
