// Package ddl contains SQLite-specific helpers for generating DDL.
//
// SQLite is dynamically typed, so the mapping targets canonical affinities:
// booleans are stored as INTEGER 0/1 and dates/timestamps as ISO-8601 TEXT.
package ddl

import (
	"strings"

	"datapipe/internal/dataset"
)

// MapType maps an inferred column type to a SQLite column type.
//
//	Integer, Boolean -> INTEGER
//	Float            -> REAL
//	everything else  -> TEXT
func MapType(t dataset.ColumnType, _ bool) string {
	switch t {
	case dataset.Integer, dataset.Boolean:
		return "INTEGER"
	case dataset.Float:
		return "REAL"
	default:
		return "TEXT"
	}
}

// QuoteIdent quotes a single identifier segment, doubling embedded quotes.
func QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
