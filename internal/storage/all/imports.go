// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each concrete backend, which register
// their factories and DDL builders with the storage package:
//
//   - "postgres"  (datapipe/internal/storage/postgres)
//   - "duckdb"    (datapipe/internal/storage/duckdb)
//   - "sqlite"    (datapipe/internal/storage/sqlite)
//   - "snowflake" (datapipe/internal/storage/snowflake)
//   - "mssql"     (datapipe/internal/storage/mssql)
//   - "mysql"     (datapipe/internal/storage/mysql)
//
// Typical usage:
//
//	import _ "datapipe/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: "postgres", DSN: dsn})
//	if err != nil {
//	    // handle error
//	}
//	defer repo.Close()
package all

import (
	_ "datapipe/internal/storage/duckdb"
	_ "datapipe/internal/storage/mssql"
	_ "datapipe/internal/storage/mysql"
	_ "datapipe/internal/storage/postgres"
	_ "datapipe/internal/storage/snowflake"
	_ "datapipe/internal/storage/sqlite"
)
