package storage

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"datapipe/internal/dataset"
	"datapipe/internal/ddl"
	"datapipe/internal/etlerr"
)

// fakeRepo is a minimal Repository implementation for tests. It records
// every statement passed to Exec.
type fakeRepo struct {
	kind   string
	execs  []string
	closed bool
}

func (f *fakeRepo) Kind() string                                { return f.kind }
func (f *fakeRepo) MapType(dataset.ColumnType, bool) string     { return "TEXT" }
func (f *fakeRepo) CountRows(context.Context, string) (int64, error) { return 0, nil }
func (f *fakeRepo) Close()                                      { f.closed = true }
func (f *fakeRepo) Upsert(_ context.Context, _ ddl.TableDef, rows [][]any) (int64, error) {
	return int64(len(rows)), nil
}
func (f *fakeRepo) BulkInsert(_ context.Context, _ ddl.TableDef, rows [][]any) (int64, error) {
	return int64(len(rows)), nil
}
func (f *fakeRepo) Exec(_ context.Context, sql string) error {
	f.execs = append(f.execs, sql)
	return nil
}

// TestRegisterAndNew_Success verifies that registering a backend enables New()
// to return the corresponding repository.
func TestRegisterAndNew_Success(t *testing.T) {
	t.Parallel()

	kind := "fake"
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		return &fakeRepo{kind: kind}, nil
	})

	repo, err := New(context.Background(), Config{Kind: kind})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if repo.Kind() != kind {
		t.Fatalf("Kind = %q", repo.Kind())
	}

	found := false
	for _, k := range ListKinds() {
		if k == kind {
			found = true
		}
	}
	if !found {
		t.Fatalf("registered kind %q not present in ListKinds", kind)
	}
}

// TestNew_Unsupported verifies that unsupported kinds return a helpful error.
func TestNew_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "does-not-exist"})
	if err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
	if !strings.Contains(err.Error(), "unsupported storage.kind=does-not-exist") {
		t.Fatalf("error = %q", err)
	}
	if !etlerr.Is(err, etlerr.KindConfiguration) {
		t.Fatalf("kind = %v, want configuration", etlerr.KindOf(err))
	}
}

// TestRegister_Override verifies that re-registering a kind replaces the
// previous factory.
func TestRegister_Override(t *testing.T) {
	t.Parallel()

	kind := "override"
	calls := 0
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		calls++
		return &fakeRepo{}, nil
	})
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		calls += 10
		return &fakeRepo{}, nil
	})

	if _, err := New(context.Background(), Config{Kind: kind}); err != nil {
		t.Fatalf("New error: %v", err)
	}
	if calls != 10 {
		t.Fatalf("factory call count = %d, want 10", calls)
	}
}

// TestRegister_AllowsErrors shows factory errors bubble up.
func TestRegister_AllowsErrors(t *testing.T) {
	t.Parallel()

	kind := "errkind"
	want := errors.New("boom")
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		return nil, want
	})

	_, err := New(context.Background(), Config{Kind: kind})
	if !errors.Is(err, want) {
		t.Fatalf("want %v, got %v", want, err)
	}
}

func TestEnsureTable_RunsBuilderStatementsInOrder(t *testing.T) {
	t.Parallel()

	kind := "fake-ddl"
	RegisterDDL(kind, func(td ddl.TableDef, mode CreateMode) ([]string, error) {
		if mode == Replace {
			return []string{"DROP " + td.FQN, "CREATE " + td.FQN}, nil
		}
		return []string{"CREATE IF NOT EXISTS " + td.FQN}, nil
	})

	repo := &fakeRepo{kind: kind}
	td := ddl.TableDef{FQN: "t", Columns: []ddl.ColumnDef{{Name: "a", SQLType: "TEXT"}}}
	if err := EnsureTable(context.Background(), repo, td, Replace); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	if err := EnsureTable(context.Background(), repo, td, CreateIfAbsent); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	want := []string{"DROP t", "CREATE t", "CREATE IF NOT EXISTS t"}
	if !reflect.DeepEqual(repo.execs, want) {
		t.Fatalf("execs = %v, want %v", repo.execs, want)
	}
}

func TestEnsureTable_UnknownKind(t *testing.T) {
	t.Parallel()

	err := EnsureTable(context.Background(), &fakeRepo{kind: "nobody"}, ddl.TableDef{FQN: "t"}, CreateIfAbsent)
	if err == nil {
		t.Fatalf("expected error for kind without DDL builder")
	}
}
