// Package postgres implements a Postgres repository using pgx v5. Upserts are
// queued as one pgx.Batch of INSERT ... ON CONFLICT statements inside a
// transaction; bulk loads use COPY.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"datapipe/internal/dataset"
	"datapipe/internal/ddl"
	"datapipe/internal/etlerr"
	pgddl "datapipe/internal/storage/postgres/ddl"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN string // connection string for pgxpool
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, etlerr.Configuration("postgres.open", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, etlerr.Transport("postgres.ping", err)
	}
	closeFn := func() { pool.Close() }
	return &Repository{pool: pool, cfg: cfg}, closeFn, nil
}

// Kind implements storage.Repository.
func (r *Repository) Kind() string { return "postgres" }

// MapType implements storage.Repository.
func (r *Repository) MapType(t dataset.ColumnType, key bool) string { return pgddl.MapType(t, key) }

// Upsert inserts rows and, on primary-key conflict, overwrites every non-key
// column with EXCLUDED values. The whole call is one transaction; rows are
// applied in order, so a later duplicate key wins.
func (r *Repository) Upsert(ctx context.Context, td ddl.TableDef, rows [][]any) (int64, error) {
	keys := td.KeyColumns()
	if len(keys) == 0 {
		return 0, fmt.Errorf("postgres upsert: table %s has no primary key", td.FQN)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	cols := td.ColumnNames()
	stmt := buildUpsertSQL(td.FQN, cols, keys)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for i, row := range rows {
		if len(row) != len(cols) {
			return 0, fmt.Errorf("postgres upsert: row %d has %d values, table has %d columns", i, len(row), len(cols))
		}
		batch.Queue(stmt, row...)
	}

	br := tx.SendBatch(ctx, batch)
	var n int64
	for i := range rows {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("postgres: upsert row %d: %w", i, describePgErr(err))
		}
		n += tag.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("postgres: close batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	log.Printf("postgres: upserted %d rows into %s", n, td.FQN)
	return n, nil
}

// BulkInsert COPYs rows into td inside a transaction.
func (r *Repository) BulkInsert(ctx context.Context, td ddl.TableDef, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	n, err := tx.CopyFrom(ctx, splitFQN(td.FQN), td.ColumnNames(), pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("postgres: copy into %s: %w", td.FQN, describePgErr(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	return n, nil
}

// CountRows implements storage.Repository.
func (r *Repository) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+pgddl.QuoteFQN(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count %s: %w", table, err)
	}
	return n, nil
}

// Exec implements storage.Repository.Exec for Postgres.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	_, err := r.pool.Exec(ctx, sql)
	return describePgErr(err)
}

// buildUpsertSQL renders:
//
//	INSERT INTO "t" ("id","name") VALUES ($1,$2)
//	ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name"
func buildUpsertSQL(table string, cols, keys []string) string {
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = fmt.Sprintf("$%d", i+1)
	}

	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keySet[k] = struct{}{}
	}
	var sets []string
	for _, c := range cols {
		if _, isKey := keySet[c]; isKey {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", pgIdent(c), pgIdent(c)))
	}

	action := "DO NOTHING"
	if len(sets) > 0 {
		action = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		pgddl.QuoteFQN(table),
		strings.Join(mapIdent(cols), ","),
		strings.Join(ph, ","),
		strings.Join(mapIdent(keys), ","),
		action,
	)
}

// describePgErr surfaces the server's detail and SQLSTATE when present.
func describePgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s: %s)", err, pgErr.SQLState(), pgErr.Detail)
	}
	return err
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return pgddl.QuoteIdent(id) }

// mapIdent maps a list of column names to their quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgIdent(c)
	}
	return out
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
