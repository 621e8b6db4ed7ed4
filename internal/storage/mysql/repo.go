// Package mysql implements a MySQL storage.Repository on go-sql-driver/mysql.
// Upserts use INSERT ... ON DUPLICATE KEY UPDATE; bulk loads use the shared
// batched multi-row INSERT path.
package mysql

import (
	"context"
	"fmt"
	"strings"

	"datapipe/internal/dataset"
	"datapipe/internal/ddl"
	"datapipe/internal/etlerr"
	"datapipe/internal/storage"
	"datapipe/internal/storage/sqldb"

	"github.com/go-sql-driver/mysql"
)

// MapType maps an inferred column type into a MySQL column type. Text keys
// need a bounded VARCHAR to be indexable.
func MapType(t dataset.ColumnType, key bool) string {
	switch t {
	case dataset.Integer:
		return "BIGINT"
	case dataset.Float:
		return "DOUBLE"
	case dataset.Boolean:
		return "BOOLEAN"
	case dataset.Date:
		return "DATE"
	case dataset.Timestamp:
		return "DATETIME"
	default:
		if key {
			return "VARCHAR(255)"
		}
		return "TEXT"
	}
}

// QuoteIdent quotes one identifier segment with backticks.
func QuoteIdent(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}

// Dialect is the MySQL flavour of sqldb.Dialect.
var Dialect = sqldb.Dialect{
	Kind:      "mysql",
	Quote:     QuoteIdent,
	MapType:   MapType,
	UpsertSQL: onDuplicateKeySQL,
	MaxParams: 65535,
}

// Config holds MySQL repository configuration.
type Config struct {
	DSN       string
	BatchSize int
}

// Repository is a MySQL-backed storage.Repository.
type Repository struct {
	*sqldb.Repository
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository parses the DSN, opens the pool and pings it.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, etlerr.Configuration("mysql.open", err)
	}
	// DATE/DATETIME columns scan back as time.Time.
	mc.ParseTime = true
	r, err := sqldb.Open(ctx, "mysql", mc.FormatDSN(), Dialect, cfg.BatchSize)
	if err != nil {
		return nil, nil, err
	}
	return &Repository{Repository: r}, func() { r.Close() }, nil
}

// onDuplicateKeySQL renders:
//
//	INSERT INTO `t` (`id`, `name`) VALUES (?, ?)
//	ON DUPLICATE KEY UPDATE `name` = VALUES(`name`)
func onDuplicateKeySQL(d sqldb.Dialect, table string, cols, keys []string) (string, error) {
	if len(keys) == 0 {
		return "", fmt.Errorf("mysql upsert: no key columns")
	}
	rest := sqldb.NonKey(cols, keys)
	if len(rest) == 0 {
		// Nothing to update; assigning the key to itself keeps the row.
		rest = keys[:1]
	}
	sets := make([]string, len(rest))
	for i, c := range rest {
		q := d.Quote(c)
		sets[i] = q + " = VALUES(" + q + ")"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
		ddl.QuoteFQN(table, d.Quote), sqldb.QuoteList(d.Quote, cols), sqldb.Placeholders(d, len(cols)),
		strings.Join(sets, ", ")), nil
}
