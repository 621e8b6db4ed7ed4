package loader

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"testing"
	"time"

	"datapipe/internal/dataset"
	"datapipe/internal/etlerr"
	"datapipe/internal/storage/sqlite"
)

func newRepo(tb testing.TB) *sqlite.Repository {
	tb.Helper()
	repo, closeFn, err := sqlite.NewRepository(context.Background(), sqlite.Config{DSN: ":memory:", BatchSize: 7})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(closeFn)
	return repo
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func employees(tb testing.TB, rows ...[]any) *dataset.Dataset {
	tb.Helper()
	cols := []dataset.Column{
		{Descriptor: dataset.Descriptor{Name: "id", Type: dataset.Integer}},
		{Descriptor: dataset.Descriptor{Name: "name", Type: dataset.Text}},
		{Descriptor: dataset.Descriptor{Name: "salary", Type: dataset.Integer}},
		{Descriptor: dataset.Descriptor{Name: "hire_date", Type: dataset.Date}},
	}
	for _, r := range rows {
		for i := range cols {
			cols[i].Values = append(cols[i].Values, r[i])
		}
	}
	ds, err := dataset.New(cols...)
	if err != nil {
		tb.Fatalf("dataset.New: %v", err)
	}
	return ds
}

// snapshot returns every row of table ordered by its first column.
func snapshot(tb testing.TB, db *sql.DB, table string) [][]any {
	tb.Helper()
	rows, err := db.Query(fmt.Sprintf(`SELECT * FROM %q ORDER BY 1`, table))
	if err != nil {
		tb.Fatalf("select: %v", err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		tb.Fatalf("columns: %v", err)
	}
	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			tb.Fatalf("scan: %v", err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		tb.Fatalf("rows: %v", err)
	}
	return out
}

func columnCount(tb testing.TB, db *sql.DB, table string) int {
	tb.Helper()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?)`, table).Scan(&n); err != nil {
		tb.Fatalf("pragma_table_info: %v", err)
	}
	return n
}

func TestUpsert_EmployeesScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newRepo(t)

	first := employees(t,
		[]any{int64(1), "Alice", int64(50000), day(2020, 1, 1)},
		[]any{int64(2), "Bob", int64(60000), day(2021, 6, 15)},
	)
	if n, err := Upsert(ctx, repo, first, "employees", "id"); err != nil || n != 2 {
		t.Fatalf("Upsert = %d, %v", n, err)
	}
	before := snapshot(t, repo.DB(), "employees")

	second := employees(t, []any{int64(1), "Alice", int64(55000), day(2020, 1, 1)})
	if _, err := Upsert(ctx, repo, second, "employees", "id"); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	after := snapshot(t, repo.DB(), "employees")
	if len(after) != 2 {
		t.Fatalf("rows = %d, want 2", len(after))
	}
	if after[0][2] != int64(55000) {
		t.Fatalf("salary of id 1 = %v, want 55000", after[0][2])
	}
	if !reflect.DeepEqual(after[1], before[1]) {
		t.Fatalf("row 2 changed: %v -> %v", before[1], after[1])
	}
}

func TestUpsert_Convergence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newRepo(t)

	ds := employees(t,
		[]any{int64(1), "Alice", int64(50000), day(2020, 1, 1)},
		[]any{int64(2), "Bob", nil, nil},
		[]any{int64(3), "Carol", int64(70000), day(2022, 2, 2)},
	)
	if _, err := Upsert(ctx, repo, ds, "employees", "id"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	once := snapshot(t, repo.DB(), "employees")
	if _, err := Upsert(ctx, repo, ds, "employees", "id"); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if twice := snapshot(t, repo.DB(), "employees"); !reflect.DeepEqual(once, twice) {
		t.Fatalf("table changed on re-run:\n%v\n%v", once, twice)
	}
}

func TestUpsert_OverwriteClearsNonKeyColumns(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newRepo(t)

	if _, err := Upsert(ctx, repo, employees(t, []any{int64(7), "Gina", int64(1), day(2020, 1, 1)}), "employees", "id"); err != nil {
		t.Fatal(err)
	}
	if _, err := Upsert(ctx, repo, employees(t, []any{int64(7), "Gina R.", nil, nil}), "employees", "id"); err != nil {
		t.Fatal(err)
	}
	got := snapshot(t, repo.DB(), "employees")
	if len(got) != 1 || got[0][1] != "Gina R." || got[0][2] != nil || got[0][3] != nil {
		t.Fatalf("row = %v, want non-key columns fully replaced", got)
	}
}

func TestUpsert_EmptyDatasetCreatesTable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newRepo(t)

	n, err := Upsert(ctx, repo, employees(t), "employees", "id")
	if err != nil || n != 0 {
		t.Fatalf("Upsert = %d, %v", n, err)
	}
	if got := columnCount(t, repo.DB(), "employees"); got != 4 {
		t.Fatalf("columns = %d, want 4", got)
	}
}

func TestUpsert_UnknownKeyFailsBeforeDDL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newRepo(t)

	_, err := Upsert(ctx, repo, employees(t, []any{int64(1), "A", int64(1), nil}), "employees", "employee_id")
	if !etlerr.Is(err, etlerr.KindConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
	if got := columnCount(t, repo.DB(), "employees"); got != 0 {
		t.Fatalf("table was created despite the bad key")
	}
}

func TestBulk_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newRepo(t)

	var rows [][]any
	for i := 1; i <= 25; i++ {
		rows = append(rows, []any{int64(i), fmt.Sprintf("p%d", i), int64(i * 10), day(2024, 1, i%28+1)})
	}
	ds := employees(t, rows...)

	if n, err := Bulk(ctx, repo, ds, "nppes_sample"); err != nil || n != 25 {
		t.Fatalf("Bulk = %d, %v", n, err)
	}
	once := snapshot(t, repo.DB(), "nppes_sample")
	if _, err := Bulk(ctx, repo, ds, "nppes_sample"); err != nil {
		t.Fatalf("Bulk again: %v", err)
	}
	twice := snapshot(t, repo.DB(), "nppes_sample")
	if len(twice) != 25 || !reflect.DeepEqual(once, twice) {
		t.Fatalf("bulk load is not idempotent: %d vs %d rows", len(once), len(twice))
	}
	if n, err := repo.CountRows(ctx, "nppes_sample"); err != nil || n != 25 {
		t.Fatalf("CountRows = %d, %v", n, err)
	}
}

func TestBulk_EmptyDatasetReplacesTable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := newRepo(t)

	for _, stmt := range []string{
		`CREATE TABLE "t" ("a" TEXT, "b" TEXT, "c" TEXT, "d" TEXT, "e" TEXT)`,
		`INSERT INTO "t" VALUES ('1','2','3','4','5'), ('6','7','8','9','0')`,
	} {
		if err := repo.Exec(ctx, stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	ds, err := dataset.FromRecords([]string{"x", "y", "z"}, nil)
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	n, err := Bulk(ctx, repo, ds, "t")
	if err != nil || n != 0 {
		t.Fatalf("Bulk = %d, %v", n, err)
	}
	if count, _ := repo.CountRows(ctx, "t"); count != 0 {
		t.Fatalf("rows = %d, want 0", count)
	}
	if got := columnCount(t, repo.DB(), "t"); got != 3 {
		t.Fatalf("columns = %d, want 3", got)
	}
}

func TestSchema_Deterministic(t *testing.T) {
	t.Parallel()
	repo := newRepo(t)
	ds := employees(t, []any{int64(1), "A", int64(2), day(2020, 1, 1)})

	a, err := Schema(repo, ds, "employees", "id")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Schema(repo, ds, "employees", "id")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) || a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("schemas differ: %+v vs %+v", a, b)
	}
}
