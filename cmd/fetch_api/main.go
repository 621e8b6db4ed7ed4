// Command fetch_api fetches the public Pokemon API and stores the JSON in the source bucket.
package main

import (
	"os"

	"datapipe/internal/cli"
	"datapipe/internal/stages"

	// register all backends with the storage factory.
	_ "datapipe/internal/storage/all"
)

func main() {
	os.Exit(cli.Main(stages.FetchAPIToObjectStore))
}
