package ddl

import (
	gddl "datapipe/internal/ddl"
)

// BuildCreateTableSQL renders a SQLite CREATE TABLE for t. SQLite accepts
// IF NOT EXISTS, which is used for the create-if-absent path. PRIMARY KEY
// columns are sorted for deterministic output.
func BuildCreateTableSQL(t gddl.TableDef, ifNotExists bool) (string, error) {
	return gddl.BuildCreateTableSQL(t, gddl.CreateOptions{
		Quote:          QuoteIdent,
		IfNotExists:    ifNotExists,
		SortPrimaryKey: true,
	})
}

// BuildDropTableSQL renders DROP TABLE IF EXISTS for fqn.
func BuildDropTableSQL(fqn string) string {
	return "DROP TABLE IF EXISTS " + gddl.QuoteFQN(fqn, QuoteIdent)
}
