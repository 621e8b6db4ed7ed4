// Package ddl defines a small, backend-agnostic model for SQL DDL, the
// inferencer that derives it from a dataset, and a dialect-parameterized
// CREATE TABLE renderer.
//
// Backend packages (internal/storage/postgres/ddl, internal/storage/duckdb,
// ...) supply their own identifier quoting and type mapping; this package
// never assumes a specific SQL dialect.
package ddl

import (
	"fmt"
	"sort"
	"strings"
)

// Quoter quotes a single identifier segment for a dialect.
type Quoter func(string) string

// CreateOptions tune BuildCreateTableSQL for a dialect.
type CreateOptions struct {
	// Quote quotes identifiers; nil emits names verbatim.
	Quote Quoter
	// IfNotExists renders CREATE TABLE IF NOT EXISTS.
	IfNotExists bool
	// SortPrimaryKey orders the PRIMARY KEY clause alphabetically.
	SortPrimaryKey bool
}

// BuildCreateTableSQL renders a CREATE TABLE statement from a TableDef.
//
// Rules:
//   - t.FQN must be non-empty; every column needs a Name and SQLType.
//   - A column renders as <name> <type> [NOT NULL] [DEFAULT <expr>]; NOT NULL
//     is added when Nullable is false or the column is part of the key.
//   - Key columns are collected into a trailing PRIMARY KEY (...) clause.
func BuildCreateTableSQL(t TableDef, opts CreateOptions) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}
	quote := opts.Quote
	if quote == nil {
		quote = func(s string) string { return s }
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, quote(name))
		}
	}

	if len(pks) > 0 {
		if opts.SortPrimaryKey {
			sort.Strings(pks)
		}
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	create := "CREATE TABLE "
	if opts.IfNotExists {
		create = "CREATE TABLE IF NOT EXISTS "
	}
	return fmt.Sprintf("%s%s (\n  %s\n);", create, QuoteFQN(fqn, quote), strings.Join(cols, ",\n  ")), nil
}

// QuoteFQN quotes each dotted segment of a possibly schema-qualified name.
// Empty segments are dropped.
func QuoteFQN(fqn string, quote Quoter) string {
	if quote == nil {
		return fqn
	}
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, quote(p))
	}
	return strings.Join(out, ".")
}

// DoubleQuote is the ANSI identifier quoting shared by Postgres, DuckDB,
// SQLite and Snowflake.
func DoubleQuote(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
