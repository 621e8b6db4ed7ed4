package ddl

import (
	"strconv"

	"github.com/zeebo/xxh3"
)

// ColumnDef describes a single column in a table definition. It uses simple,
// database-agnostic fields.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., TEXT, BIGINT, VARCHAR)
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., 'anon', CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the fully-qualified table name (FQN) and an ordered list of
// columns. The FQN is expected in dotted form (e.g., "schema.table") and will
// be quoted by renderers as needed.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// ColumnNames returns the column names in declaration order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// KeyColumns returns the primary-key column names in declaration order.
func (t TableDef) KeyColumns() []string {
	var out []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			out = append(out, c.Name)
		}
	}
	return out
}

// Fingerprint hashes the definition with xxh3. Equal definitions hash equal.
func (t TableDef) Fingerprint() uint64 {
	h := xxh3.New()
	_, _ = h.WriteString(t.FQN)
	for _, c := range t.Columns {
		_, _ = h.WriteString("\x00" + c.Name + "\x00" + c.SQLType + "\x00" +
			strconv.FormatBool(c.Nullable) + strconv.FormatBool(c.PrimaryKey) + "\x00" + c.Default)
	}
	return h.Sum64()
}
