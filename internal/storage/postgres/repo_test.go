package postgres

import (
	"reflect"
	"testing"
)

func TestBuildUpsertSQL(t *testing.T) {
	t.Parallel()

	got := buildUpsertSQL("employees", []string{"id", "name", "salary"}, []string{"id"})
	want := `INSERT INTO "employees" ("id","name","salary") VALUES ($1,$2,$3) ` +
		`ON CONFLICT ("id") DO UPDATE SET "name" = EXCLUDED."name", "salary" = EXCLUDED."salary"`
	if got != want {
		t.Fatalf("sql =\n%s\nwant\n%s", got, want)
	}

	keyOnly := buildUpsertSQL("public.k", []string{"id"}, []string{"id"})
	if keyOnly != `INSERT INTO "public"."k" ("id") VALUES ($1) ON CONFLICT ("id") DO NOTHING` {
		t.Fatalf("key-only sql = %s", keyOnly)
	}
}

func TestSplitFQN(t *testing.T) {
	t.Parallel()

	cases := map[string][]string{
		"employees":        {"employees"},
		"public.employees": {"public", "employees"},
		"a..b":             {"a", "b"},
	}
	for in, want := range cases {
		got := []string(splitFQN(in))
		if !reflect.DeepEqual(got, want) {
			t.Errorf("splitFQN(%q) = %v, want %v", in, got, want)
		}
	}
}
