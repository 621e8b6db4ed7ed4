package ddl

import (
	"testing"

	"datapipe/internal/dataset"
)

// TestMapType verifies the affinity chosen for every inferred type.
func TestMapType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   dataset.ColumnType
		want string
	}{
		{dataset.Integer, "INTEGER"},
		{dataset.Boolean, "INTEGER"},
		{dataset.Float, "REAL"},
		{dataset.Date, "TEXT"},
		{dataset.Timestamp, "TEXT"},
		{dataset.Text, "TEXT"},
	}
	for _, tt := range tests {
		if got := MapType(tt.in, false); got != tt.want {
			t.Errorf("MapType(%v) = %q, want %q", tt.in, got, tt.want)
		}
		if got := MapType(tt.in, true); got != tt.want {
			t.Errorf("MapType(%v, key) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()
	if got := QuoteIdent(`we"ird`); got != `"we""ird"` {
		t.Fatalf("QuoteIdent = %s", got)
	}
}
