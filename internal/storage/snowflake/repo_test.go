package snowflake

import (
	"context"
	"errors"
	"strings"
	"testing"

	"datapipe/internal/dataset"
	"datapipe/internal/ddl"
	"datapipe/internal/storage"
	"datapipe/internal/storage/sqldb"

	sf "github.com/snowflakedb/gosnowflake"
)

func TestMapType(t *testing.T) {
	t.Parallel()

	want := map[dataset.ColumnType]string{
		dataset.Integer:   "INTEGER",
		dataset.Float:     "FLOAT",
		dataset.Boolean:   "BOOLEAN",
		dataset.Date:      "DATE",
		dataset.Timestamp: "TIMESTAMP",
		dataset.Text:      "VARCHAR",
	}
	for in, w := range want {
		if got := MapType(in, true); got != w {
			t.Errorf("MapType(%v) = %s, want %s", in, got, w)
		}
	}
}

func TestBuildDSN(t *testing.T) {
	t.Parallel()

	dsn, err := BuildDSN(Credentials{
		Account: "xy12345", User: "LOADER", Password: "secret",
		Warehouse: "COMPUTE_WH", Database: "RAW", Schema: "PUBLIC", Role: "SYSADMIN",
	})
	if err != nil {
		t.Fatalf("BuildDSN: %v", err)
	}
	got, err := sf.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q): %v", dsn, err)
	}
	if !strings.EqualFold(got.Account, "xy12345") || got.User != "LOADER" || got.Password != "secret" {
		t.Errorf("identity = %s/%s/%s", got.Account, got.User, got.Password)
	}
	if got.Database != "RAW" || got.Schema != "PUBLIC" || got.Warehouse != "COMPUTE_WH" || got.Role != "SYSADMIN" {
		t.Errorf("session = db %q schema %q warehouse %q role %q", got.Database, got.Schema, got.Warehouse, got.Role)
	}

	if _, err := BuildDSN(Credentials{User: "x"}); err == nil {
		t.Fatalf("expected error without account")
	}
}

func TestReplaceDDL(t *testing.T) {
	t.Parallel()

	td := ddl.TableDef{FQN: "NPPES_SAMPLE", Columns: []ddl.ColumnDef{
		{Name: "NPI", SQLType: "INTEGER", Nullable: true},
		{Name: "PROVIDER_NAME", SQLType: "VARCHAR", Nullable: true},
	}}
	stmts, err := storage.BuildDDL("snowflake", td, storage.Replace)
	if err != nil {
		t.Fatalf("BuildDDL: %v", err)
	}
	want := []string{
		`DROP TABLE IF EXISTS "NPPES_SAMPLE"`,
		"CREATE TABLE \"NPPES_SAMPLE\" (\n  \"NPI\" INTEGER,\n  \"PROVIDER_NAME\" VARCHAR\n);",
	}
	if len(stmts) != 2 || stmts[0] != want[0] || stmts[1] != want[1] {
		t.Fatalf("stmts = %q\nwant %q", stmts, want)
	}
}

func TestUpsertUnsupported(t *testing.T) {
	t.Parallel()

	repo := &Repository{Repository: sqldb.New(nil, Dialect, 0)}
	td := ddl.TableDef{FQN: "T", Columns: []ddl.ColumnDef{{Name: "ID", SQLType: "INTEGER", PrimaryKey: true}}}
	_, err := repo.Upsert(context.Background(), td, [][]any{{int64(1)}})
	if !errors.Is(err, storage.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}
