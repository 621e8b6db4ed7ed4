// Package ddl contains Postgres-specific helpers for generating DDL.
//
// It builds CREATE TABLE statements for a generic ddl.TableDef, using
// Postgres-style quoting (double-quoted identifiers, escaped quotes).
package ddl

import (
	"strings"

	gddl "datapipe/internal/ddl"
)

// BuildCreateTableSQL builds a deterministic Postgres CREATE TABLE statement.
//
// Rules:
//   - Primary-key columns are always rendered as NOT NULL.
//   - PRIMARY KEY is a separate constraint clause with quoted column names,
//     sorted alphabetically for determinism.
//   - Identifiers are double-quoted; embedded double-quotes are escaped.
//   - ifNotExists renders CREATE TABLE IF NOT EXISTS.
func BuildCreateTableSQL(t gddl.TableDef, ifNotExists bool) (string, error) {
	return gddl.BuildCreateTableSQL(t, gddl.CreateOptions{
		Quote:          QuoteIdent,
		IfNotExists:    ifNotExists,
		SortPrimaryKey: true,
	})
}

// BuildDropTableSQL renders DROP TABLE IF EXISTS for fqn.
func BuildDropTableSQL(fqn string) string {
	return "DROP TABLE IF EXISTS " + QuoteFQN(fqn)
}

// QuoteIdent quotes a single identifier segment for Postgres, e.g.:
//
//	QuoteIdent(`pcv`)        => `"pcv"`
//	QuoteIdent(`weird"name`) => `"weird""name"`
func QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// QuoteFQN quotes a possibly schema-qualified name like "public.users" to
// `"public"."users"`. Empty segments are ignored.
func QuoteFQN(f string) string {
	return gddl.QuoteFQN(f, QuoteIdent)
}
