package all

import (
	"sort"
	"testing"

	"datapipe/internal/storage"
)

func TestAllBackendsRegistered(t *testing.T) {
	t.Parallel()

	kinds := storage.ListKinds()
	sort.Strings(kinds)
	for _, want := range []string{"duckdb", "mssql", "mysql", "postgres", "snowflake", "sqlite"} {
		i := sort.SearchStrings(kinds, want)
		if i >= len(kinds) || kinds[i] != want {
			t.Errorf("kind %q not registered; have %v", want, kinds)
		}
	}
}
