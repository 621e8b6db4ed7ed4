// Package sqldb implements storage.Repository on top of database/sql for every
// backend whose driver speaks that interface (SQLite, DuckDB, Snowflake,
// MySQL, SQL Server). Dialect differences are captured in a Dialect value
// supplied by the backend package.
//
// Upserts run row-by-row through one prepared statement inside a single
// transaction. Bulk inserts run batched multi-row INSERTs inside a single
// transaction; backends with a native bulk API (DuckDB appender) override
// BulkInsert in their own package.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"datapipe/internal/dataset"
	"datapipe/internal/ddl"
	"datapipe/internal/etlerr"
	"datapipe/internal/storage"
)

// Dialect captures what differs between SQL backends.
type Dialect struct {
	// Kind is the storage kind the backend registers under.
	Kind string
	// Quote quotes one identifier segment.
	Quote ddl.Quoter
	// Placeholder renders the n-th (1-based) bind parameter. Nil means "?".
	Placeholder func(n int) string
	// MapType maps inferred column types to SQL types.
	MapType ddl.TypeMapper
	// UpsertSQL renders a single-row insert-or-update keyed on keys, with
	// one placeholder per column in cols order. It receives the dialect it
	// belongs to. Nil means upserts are unsupported.
	UpsertSQL func(d Dialect, table string, cols, keys []string) (string, error)
	// MaxParams caps bind parameters per statement (0 = unlimited).
	MaxParams int
	// MaxRowsPerInsert caps VALUES tuples per statement (0 = unlimited).
	MaxRowsPerInsert int
}

func (d Dialect) placeholder(n int) string {
	if d.Placeholder == nil {
		return "?"
	}
	return d.Placeholder(n)
}

// Repository is a database/sql backed storage.Repository.
type Repository struct {
	db        *sql.DB
	dialect   Dialect
	batchSize int
}

var _ storage.Repository = (*Repository)(nil)

// Open opens driverName with dsn and pings it with a short timeout so invalid
// DSNs fail fast.
func Open(ctx context.Context, driverName, dsn string, d Dialect, batchSize int) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" && driverName != "duckdb" {
		return nil, etlerr.Errorf(etlerr.KindConfiguration, d.Kind+".open", "DSN must not be empty")
	}
	// sql.Open only fails on an unknown driver or a DSN the connector
	// rejects; nothing is dialed until the ping.
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, etlerr.Configuration(d.Kind+".open", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, etlerr.Transport(d.Kind+".ping", err)
	}
	return New(db, d, batchSize), nil
}

// New wraps an already-open *sql.DB.
func New(db *sql.DB, d Dialect, batchSize int) *Repository {
	if batchSize <= 0 {
		batchSize = storage.DefaultBatchSize
	}
	return &Repository{db: db, dialect: d, batchSize: batchSize}
}

// DB exposes the underlying pool to backends layering native APIs on top.
func (r *Repository) DB() *sql.DB { return r.db }

// Dialect returns the repository's dialect.
func (r *Repository) Dialect() Dialect { return r.dialect }

func (r *Repository) Kind() string { return r.dialect.Kind }

func (r *Repository) MapType(t dataset.ColumnType, key bool) string {
	return r.dialect.MapType(t, key)
}

// Upsert writes rows keyed on td's primary key in one transaction. A failure
// rolls back every row of the call.
func (r *Repository) Upsert(ctx context.Context, td ddl.TableDef, rows [][]any) (int64, error) {
	if r.dialect.UpsertSQL == nil {
		return 0, fmt.Errorf("%s upsert: %w", r.dialect.Kind, storage.ErrUnsupported)
	}
	keys := td.KeyColumns()
	if len(keys) == 0 {
		return 0, fmt.Errorf("%s upsert: table %s has no primary key", r.dialect.Kind, td.FQN)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	cols := td.ColumnNames()
	stmtSQL, err := r.dialect.UpsertSQL(r.dialect, td.FQN, cols, keys)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", r.dialect.Kind, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		return 0, fmt.Errorf("%s: prepare upsert: %w", r.dialect.Kind, err)
	}
	defer stmt.Close()

	var n int64
	for i, row := range rows {
		if len(row) != len(cols) {
			return 0, fmt.Errorf("%s upsert: row %d has %d values, table has %d columns", r.dialect.Kind, i, len(row), len(cols))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("%s: upsert row %d: %w", r.dialect.Kind, i, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", r.dialect.Kind, err)
	}
	return n, nil
}

// BulkInsert writes rows with batched multi-row INSERTs in one transaction.
func (r *Repository) BulkInsert(ctx context.Context, td ddl.TableDef, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	cols := td.ColumnNames()
	batch := r.rowsPerStatement(len(cols))

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", r.dialect.Kind, err)
	}
	defer func() { _ = tx.Rollback() }()

	total, err := storage.LoadBatches(ctx, cols, rows, batch,
		func(ctx context.Context, columns []string, b [][]any) (int64, error) {
			q, args, err := InsertSQL(r.dialect, td.FQN, columns, b)
			if err != nil {
				return 0, err
			}
			res, err := tx.ExecContext(ctx, q, args...)
			if err != nil {
				return 0, fmt.Errorf("%s: insert: %w", r.dialect.Kind, err)
			}
			if n, err := res.RowsAffected(); err == nil && n >= 0 {
				return n, nil
			}
			return int64(len(b)), nil
		})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", r.dialect.Kind, err)
	}
	return total, nil
}

// rowsPerStatement honors the configured batch size and the dialect's caps.
func (r *Repository) rowsPerStatement(ncols int) int {
	n := r.batchSize
	if m := r.dialect.MaxRowsPerInsert; m > 0 && n > m {
		n = m
	}
	if p := r.dialect.MaxParams; p > 0 && ncols > 0 && n*ncols > p {
		n = p / ncols
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (r *Repository) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	q := "SELECT COUNT(*) FROM " + ddl.QuoteFQN(table, r.dialect.Quote)
	if err := r.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: count %s: %w", r.dialect.Kind, table, err)
	}
	return n, nil
}

// Exec executes a single statement, typically DDL.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("%s: exec: %w", r.dialect.Kind, err)
	}
	return nil
}

func (r *Repository) Close() { _ = r.db.Close() }

// InsertSQL renders one multi-row INSERT for rows and flattens its arguments.
func InsertSQL(d Dialect, table string, cols []string, rows [][]any) (string, []any, error) {
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("%s: insert: columns must not be empty", d.Kind)
	}
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(ddl.QuoteFQN(table, d.Quote))
	sb.WriteString(" (")
	sb.WriteString(quoteList(d.Quote, cols))
	sb.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(cols))
	p := 1
	for i, row := range rows {
		if len(row) != len(cols) {
			return "", nil, fmt.Errorf("%s: insert: row %d has %d values, want %d", d.Kind, i, len(row), len(cols))
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j := range cols {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(d.placeholder(p))
			p++
		}
		sb.WriteByte(')')
		args = append(args, row...)
	}
	return sb.String(), args, nil
}

// Placeholders renders n placeholders starting at 1, comma separated.
func Placeholders(d Dialect, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = d.placeholder(i + 1)
	}
	return strings.Join(ps, ", ")
}

func quoteList(q ddl.Quoter, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		if q != nil {
			out[i] = q(c)
		} else {
			out[i] = c
		}
	}
	return strings.Join(out, ", ")
}

// QuoteList quotes and joins column names.
func QuoteList(q ddl.Quoter, cols []string) string { return quoteList(q, cols) }

// NonKey returns cols minus keys, preserving order.
func NonKey(cols, keys []string) []string {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if _, ok := set[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// OnConflictUpsertSQL renders the ANSI-ish form shared by SQLite, DuckDB and
// Postgres:
//
//	INSERT INTO t (a, b) VALUES (?, ?)
//	ON CONFLICT (a) DO UPDATE SET b = EXCLUDED.b
//
// When every column is a key, the conflict action is DO NOTHING.
func OnConflictUpsertSQL(d Dialect, table string, cols, keys []string) (string, error) {
	if len(keys) == 0 {
		return "", fmt.Errorf("%s upsert: no key columns", d.Kind)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) ",
		ddl.QuoteFQN(table, d.Quote), quoteList(d.Quote, cols), Placeholders(d, len(cols)), quoteList(d.Quote, keys))
	rest := NonKey(cols, keys)
	if len(rest) == 0 {
		sb.WriteString("DO NOTHING")
		return sb.String(), nil
	}
	sb.WriteString("DO UPDATE SET ")
	for i, c := range rest {
		if i > 0 {
			sb.WriteString(", ")
		}
		q := d.Quote(c)
		sb.WriteString(q + " = EXCLUDED." + q)
	}
	return sb.String(), nil
}

// StandardDDL returns the DDLBuilder for dialects supporting both
// CREATE TABLE IF NOT EXISTS and DROP TABLE IF EXISTS.
func StandardDDL(d Dialect) storage.DDLBuilder {
	return func(td ddl.TableDef, mode storage.CreateMode) ([]string, error) {
		create, err := ddl.BuildCreateTableSQL(td, ddl.CreateOptions{
			Quote:       d.Quote,
			IfNotExists: mode == storage.CreateIfAbsent,
		})
		if err != nil {
			return nil, err
		}
		if mode == storage.Replace {
			return []string{"DROP TABLE IF EXISTS " + ddl.QuoteFQN(td.FQN, d.Quote), create}, nil
		}
		return []string{create}, nil
	}
}
