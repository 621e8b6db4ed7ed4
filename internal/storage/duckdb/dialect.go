package duckdb

import (
	"datapipe/internal/dataset"
	"datapipe/internal/ddl"
	"datapipe/internal/storage/sqldb"
)

// MapType maps an inferred column type into a DuckDB SQL type.
//
//	Integer   -> BIGINT
//	Float     -> DOUBLE
//	Boolean   -> BOOLEAN
//	Date      -> DATE
//	Timestamp -> TIMESTAMP
//	Text      -> VARCHAR
func MapType(t dataset.ColumnType, _ bool) string {
	switch t {
	case dataset.Integer:
		return "BIGINT"
	case dataset.Float:
		return "DOUBLE"
	case dataset.Boolean:
		return "BOOLEAN"
	case dataset.Date:
		return "DATE"
	case dataset.Timestamp:
		return "TIMESTAMP"
	default:
		return "VARCHAR"
	}
}

// Dialect is the DuckDB flavour of sqldb.Dialect.
var Dialect = sqldb.Dialect{
	Kind:      "duckdb",
	Quote:     ddl.DoubleQuote,
	MapType:   MapType,
	UpsertSQL: sqldb.OnConflictUpsertSQL,
}

// appendableTypes are the column types the appender path writes directly
// from the Go values a dataset carries.
var appendableTypes = map[string]struct{}{
	"BIGINT": {}, "INTEGER": {}, "DOUBLE": {}, "BOOLEAN": {},
	"DATE": {}, "TIMESTAMP": {}, "VARCHAR": {},
}

func appendable(td ddl.TableDef) bool {
	for _, c := range td.Columns {
		if _, ok := appendableTypes[c.SQLType]; !ok {
			return false
		}
	}
	return true
}
