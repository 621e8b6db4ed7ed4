package ddl

import (
	"fmt"
	"strings"

	"datapipe/internal/dataset"
	"datapipe/internal/etlerr"
)

// TypeMapper maps an inferred column type to a destination SQL type. key
// reports whether the column is the primary key, for dialects that cannot
// index their generic text type (MySQL TEXT, MSSQL NVARCHAR(MAX)).
type TypeMapper func(t dataset.ColumnType, key bool) string

// Infer derives a destination schema for table from column descriptors.
//
// Every column keeps its position and gets mapper's type. When key is
// non-empty the matching column becomes the (non-null) primary key; a key
// that matches no column is a configuration error and nothing is emitted.
// Other columns are nullable. Infer is pure: identical inputs give identical
// output.
func Infer(table string, cols []dataset.Descriptor, key string, mapper TypeMapper) (TableDef, error) {
	if strings.TrimSpace(table) == "" {
		return TableDef{}, etlerr.Errorf(etlerr.KindConfiguration, "ddl.infer", "table name must not be empty")
	}
	if len(cols) == 0 {
		return TableDef{}, etlerr.Errorf(etlerr.KindSchema, "ddl.infer", "table %s: dataset has no columns", table)
	}
	if mapper == nil {
		return TableDef{}, etlerr.Errorf(etlerr.KindSchema, "ddl.infer", "table %s: no type mapper", table)
	}

	keyFound := key == ""
	td := TableDef{FQN: table, Columns: make([]ColumnDef, len(cols))}
	for i, c := range cols {
		isKey := key != "" && c.Name == key
		if isKey {
			keyFound = true
		}
		typ := mapper(c.Type, isKey)
		if typ == "" {
			return TableDef{}, etlerr.Errorf(etlerr.KindSchema, "ddl.infer",
				"table %s: no destination type for column %q (%s)", table, c.Name, c.Type)
		}
		td.Columns[i] = ColumnDef{
			Name:       c.Name,
			SQLType:    typ,
			Nullable:   !isKey,
			PrimaryKey: isKey,
		}
	}
	if !keyFound {
		return TableDef{}, etlerr.Configuration("ddl.infer",
			fmt.Errorf("key column %q not found in dataset columns for table %s", key, table))
	}
	return td, nil
}
