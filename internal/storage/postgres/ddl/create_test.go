package ddl

import (
	"testing"

	gddl "datapipe/internal/ddl"
)

// TestQuoteIdent verifies Postgres identifier quoting and escaping.
func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple", in: "name", want: `"name"`},
		{name: "empty", in: "", want: `""`},
		{name: "with space", in: "user name", want: `"user name"`},
		{name: "with double quote", in: `weird"name`, want: `"weird""name"`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := QuoteIdent(tt.in); got != tt.want {
				t.Fatalf("QuoteIdent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestQuoteFQN(t *testing.T) {
	t.Parallel()
	if got := QuoteFQN("public..employees"); got != `"public"."employees"` {
		t.Fatalf("QuoteFQN = %s", got)
	}
}

// TestBuildCreateTableSQL_Employees renders the employees table the relational
// stage creates.
func TestBuildCreateTableSQL_Employees(t *testing.T) {
	t.Parallel()

	td := gddl.TableDef{
		FQN: "employees",
		Columns: []gddl.ColumnDef{
			{Name: "id", SQLType: "BIGINT", PrimaryKey: true},
			{Name: "name", SQLType: "TEXT", Nullable: true},
			{Name: "hire_date", SQLType: "DATE", Nullable: true},
		},
	}
	got, err := BuildCreateTableSQL(td, true)
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS \"employees\" (\n" +
		"  \"id\" BIGINT NOT NULL,\n" +
		"  \"name\" TEXT,\n" +
		"  \"hire_date\" DATE,\n" +
		"  PRIMARY KEY (\"id\")\n);"
	if got != want {
		t.Fatalf("SQL mismatch\n got: %q\nwant: %q", got, want)
	}
	if BuildDropTableSQL("public.employees") != `DROP TABLE IF EXISTS "public"."employees"` {
		t.Fatalf("drop SQL mismatch")
	}
}
