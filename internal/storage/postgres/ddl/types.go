// Package ddl contains Postgres-specific helpers for generating DDL.
package ddl

import "datapipe/internal/dataset"

// MapType maps an inferred column type into a Postgres SQL type.
//
//	Integer   -> BIGINT
//	Float     -> DOUBLE PRECISION
//	Boolean   -> BOOLEAN
//	Date      -> DATE
//	Timestamp -> TIMESTAMP
//	Text      -> TEXT
func MapType(t dataset.ColumnType, _ bool) string {
	switch t {
	case dataset.Integer:
		return "BIGINT"
	case dataset.Float:
		return "DOUBLE PRECISION"
	case dataset.Boolean:
		return "BOOLEAN"
	case dataset.Date:
		return "DATE"
	case dataset.Timestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}
