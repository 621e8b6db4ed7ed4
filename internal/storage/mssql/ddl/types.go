// Package ddl contains MSSQL-specific helpers for generating DDL.
//
// Key columns get a bounded NVARCHAR because SQL Server cannot index
// NVARCHAR(MAX).
package ddl

import "datapipe/internal/dataset"

// MapType maps an inferred column type into a SQL Server column type.
func MapType(t dataset.ColumnType, key bool) string {
	switch t {
	case dataset.Integer:
		return "BIGINT"
	case dataset.Float:
		return "FLOAT"
	case dataset.Boolean:
		return "BIT"
	case dataset.Date:
		return "DATE"
	case dataset.Timestamp:
		return "DATETIME2"
	default:
		if key {
			return "NVARCHAR(450)"
		}
		return "NVARCHAR(MAX)"
	}
}
