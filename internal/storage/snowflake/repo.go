// Package snowflake implements a Snowflake warehouse storage.Repository using
// github.com/snowflakedb/gosnowflake through database/sql. The warehouse is a
// bulk target only: tables are dropped and recreated per load and rows are
// written with batched multi-row INSERTs in one transaction. Keyed upserts
// are not offered.
package snowflake

import (
	"context"
	"fmt"
	"strings"

	"datapipe/internal/dataset"
	"datapipe/internal/ddl"
	"datapipe/internal/storage"
	"datapipe/internal/storage/sqldb"

	sf "github.com/snowflakedb/gosnowflake"
)

// MapType maps an inferred column type into a Snowflake SQL type.
//
//	Integer   -> INTEGER
//	Float     -> FLOAT
//	Boolean   -> BOOLEAN
//	Date      -> DATE
//	Timestamp -> TIMESTAMP
//	Text      -> VARCHAR
func MapType(t dataset.ColumnType, _ bool) string {
	switch t {
	case dataset.Integer:
		return "INTEGER"
	case dataset.Float:
		return "FLOAT"
	case dataset.Boolean:
		return "BOOLEAN"
	case dataset.Date:
		return "DATE"
	case dataset.Timestamp:
		return "TIMESTAMP"
	default:
		return "VARCHAR"
	}
}

// Dialect is the Snowflake flavour of sqldb.Dialect. UpsertSQL is nil.
var Dialect = sqldb.Dialect{
	Kind:             "snowflake",
	Quote:            ddl.DoubleQuote,
	MapType:          MapType,
	MaxParams:        16384,
	MaxRowsPerInsert: 16384,
}

// Credentials are the connection parameters the warehouse stage reads from
// the environment.
type Credentials struct {
	Account   string
	User      string
	Password  string
	Warehouse string
	Database  string
	Schema    string
	Role      string
}

// BuildDSN renders a gosnowflake DSN from c.
func BuildDSN(c Credentials) (string, error) {
	if strings.TrimSpace(c.Account) == "" || strings.TrimSpace(c.User) == "" {
		return "", fmt.Errorf("snowflake: account and user are required")
	}
	return sf.DSN(&sf.Config{
		Account:   c.Account,
		User:      c.User,
		Password:  c.Password,
		Warehouse: c.Warehouse,
		Database:  c.Database,
		Schema:    c.Schema,
		Role:      c.Role,
	})
}

// Config holds Snowflake repository configuration.
type Config struct {
	DSN       string
	BatchSize int
}

// Repository is a Snowflake-backed storage.Repository.
type Repository struct {
	*sqldb.Repository
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository opens and pings the warehouse.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	r, err := sqldb.Open(ctx, "snowflake", cfg.DSN, Dialect, cfg.BatchSize)
	if err != nil {
		return nil, nil, err
	}
	return &Repository{Repository: r}, func() { r.Close() }, nil
}
