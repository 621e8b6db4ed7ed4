// Command load_postgres upserts the employee CSV from the object store into the relational database.
package main

import (
	"os"

	"datapipe/internal/cli"
	"datapipe/internal/stages"

	// register all backends with the storage factory.
	_ "datapipe/internal/storage/all"
)

func main() {
	os.Exit(cli.Main(stages.LoadToRelational))
}
