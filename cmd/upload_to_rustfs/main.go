// Command upload_to_rustfs uploads the local employee CSV to the self-hosted object store.
package main

import (
	"os"

	"datapipe/internal/cli"
	"datapipe/internal/stages"

	// register all backends with the storage factory.
	_ "datapipe/internal/storage/all"
)

func main() {
	os.Exit(cli.Main(stages.UploadToObjectStore))
}
