// Package ddl provides MSSQL-specific helpers for generating CREATE TABLE
// statements from the generic ddl.TableDef model.
package ddl

import (
	"fmt"
	"strings"

	gddl "datapipe/internal/ddl"
)

// BuildCreateTableSQL renders the generic CREATE TABLE for t inside an
// OBJECT_ID guard, since T-SQL has no CREATE TABLE IF NOT EXISTS:
//
//	IF OBJECT_ID(N'[dbo].[t]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [dbo].[t] (...);
//	END;
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	create, err := gddl.BuildCreateTableSQL(t, gddl.CreateOptions{
		Quote:          QuoteIdent,
		SortPrimaryKey: true,
	})
	if err != nil {
		return "", fmt.Errorf("mssql %w", err)
	}
	body := "  " + strings.ReplaceAll(create, "\n", "\n  ")
	return fmt.Sprintf("IF %s IS NULL\nBEGIN\n%s\nEND;", objectID(t.FQN), body), nil
}

// BuildDropTableSQL returns a guarded DROP for fqn.
func BuildDropTableSQL(fqn string) string {
	return fmt.Sprintf("IF %s IS NOT NULL DROP TABLE %s;", objectID(fqn), QuoteFQN(fqn))
}

// QuoteIdent brackets one identifier segment: weird]id -> [weird]]id].
func QuoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

// QuoteFQN quotes each dotted segment of fqn; empty segments are dropped.
func QuoteFQN(fqn string) string {
	return gddl.QuoteFQN(strings.TrimSpace(fqn), QuoteIdent)
}

// objectID renders the OBJECT_ID lookup for a user table. The quoted name is
// embedded in an N'' literal, so single quotes are doubled.
func objectID(fqn string) string {
	return fmt.Sprintf("OBJECT_ID(N'%s', N'U')", strings.ReplaceAll(QuoteFQN(fqn), "'", "''"))
}
