// Package mssql implements a Microsoft SQL Server repository on go-mssqldb.
// Upserts use MERGE through the shared database/sql layer; bulk inserts use
// the driver's bulk copy API inside a transaction.
package mssql

import (
	"context"
	"fmt"
	"strings"

	"datapipe/internal/ddl"
	"datapipe/internal/etlerr"
	"datapipe/internal/storage"
	msddl "datapipe/internal/storage/mssql/ddl"
	"datapipe/internal/storage/sqldb"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
)

// Dialect is the SQL Server flavour of sqldb.Dialect.
var Dialect = sqldb.Dialect{
	Kind:             "mssql",
	Quote:            msddl.QuoteIdent,
	Placeholder:      func(n int) string { return fmt.Sprintf("@p%d", n) },
	MapType:          msddl.MapType,
	UpsertSQL:        mergeSQL,
	MaxParams:        2100,
	MaxRowsPerInsert: 1000,
}

// Config holds MSSQL repository configuration.
type Config struct {
	DSN       string
	BatchSize int
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	*sqldb.Repository
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, etlerr.Configuration("mssql.open", err)
	}
	r, err := sqldb.Open(ctx, "sqlserver", cfg.DSN, Dialect, cfg.BatchSize)
	if err != nil {
		return nil, nil, err
	}
	return &Repository{Repository: r}, func() { r.Close() }, nil
}

// BulkInsert streams rows through mssql.CopyIn into td.
func (r *Repository) BulkInsert(ctx context.Context, td ddl.TableDef, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	cols := td.ColumnNames()
	tx, err := r.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(td.FQN, mssql.BulkOptions{}, cols...))
	if err != nil {
		return 0, fmt.Errorf("mssql: prepare bulk: %w", err)
	}
	for i, row := range rows {
		if len(row) != len(cols) {
			_ = stmt.Close()
			return 0, fmt.Errorf("mssql bulk: row %d has %d values, table has %d columns", i, len(row), len(cols))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("mssql: bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("mssql: bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mssql: rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql: commit: %w", err)
	}
	return n, nil
}

// mergeSQL renders a single-row MERGE:
//
//	MERGE INTO [t] WITH (HOLDLOCK) AS T
//	USING (VALUES (@p1, @p2)) AS S ([id], [name])
//	ON T.[id] = S.[id]
//	WHEN MATCHED THEN UPDATE SET T.[name] = S.[name]
//	WHEN NOT MATCHED THEN INSERT ([id], [name]) VALUES (S.[id], S.[name]);
func mergeSQL(d sqldb.Dialect, table string, cols, keys []string) (string, error) {
	if len(keys) == 0 {
		return "", fmt.Errorf("mssql upsert: no key columns")
	}
	on := make([]string, len(keys))
	for i, k := range keys {
		q := d.Quote(k)
		on[i] = "T." + q + " = S." + q
	}
	src := make([]string, len(cols))
	for i, c := range cols {
		src[i] = "S." + d.Quote(c)
	}
	colList := sqldb.QuoteList(d.Quote, cols)

	var sb strings.Builder
	fmt.Fprintf(&sb, "MERGE INTO %s WITH (HOLDLOCK) AS T USING (VALUES (%s)) AS S (%s) ON %s",
		ddl.QuoteFQN(table, d.Quote), sqldb.Placeholders(d, len(cols)), colList, strings.Join(on, " AND "))
	if rest := sqldb.NonKey(cols, keys); len(rest) > 0 {
		sets := make([]string, len(rest))
		for i, c := range rest {
			q := d.Quote(c)
			sets[i] = "T." + q + " = S." + q
		}
		sb.WriteString(" WHEN MATCHED THEN UPDATE SET " + strings.Join(sets, ", "))
	}
	fmt.Fprintf(&sb, " WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s);", colList, strings.Join(src, ", "))
	return sb.String(), nil
}
