package storage

import (
	"context"
	"errors"
	"testing"
)

// TestLoadBatches_Basic verifies rows are grouped into batches and copyFn is
// called with the expected counts.
func TestLoadBatches_Basic(t *testing.T) {
	t.Parallel()

	rows := make([][]any, 7)
	for i := range rows {
		rows[i] = []any{i, "x"}
	}

	var sizes []int
	copyFn := func(_ context.Context, _ []string, b [][]any) (int64, error) {
		sizes = append(sizes, len(b))
		return int64(len(b)), nil
	}

	total, err := LoadBatches(context.Background(), []string{"c1", "c2"}, rows, 3, copyFn)
	if err != nil {
		t.Fatalf("LoadBatches error: %v", err)
	}
	if total != 7 {
		t.Fatalf("total rows %d, want 7", total)
	}
	if len(sizes) != 3 || sizes[0] != 3 || sizes[1] != 3 || sizes[2] != 1 {
		t.Fatalf("batch sizes %v, want [3 3 1]", sizes)
	}
}

func TestLoadBatches_Empty(t *testing.T) {
	t.Parallel()

	called := false
	total, err := LoadBatches(context.Background(), []string{"c"}, nil, 10,
		func(context.Context, []string, [][]any) (int64, error) { called = true; return 0, nil })
	if err != nil || total != 0 || called {
		t.Fatalf("total=%d err=%v called=%v", total, err, called)
	}
}

// TestLoadBatches_ErrorPropagation ensures the first copy error stops processing.
func TestLoadBatches_ErrorPropagation(t *testing.T) {
	t.Parallel()

	rows := [][]any{{1}, {2}, {3}, {4}, {5}}
	wantErr := errors.New("copy failed")
	calls := 0
	copyFn := func(_ context.Context, _ []string, b [][]any) (int64, error) {
		calls++
		if calls == 2 {
			return 0, wantErr
		}
		return int64(len(b)), nil
	}

	total, err := LoadBatches(context.Background(), []string{"c"}, rows, 2, copyFn)
	if !errors.Is(err, wantErr) {
		t.Fatalf("want error %v, got %v", wantErr, err)
	}
	if total != 2 || calls != 2 {
		t.Fatalf("total=%d calls=%d, want 2 and 2", total, calls)
	}
}

func TestLoadBatches_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadBatches(ctx, []string{"c"}, [][]any{{1}}, 1,
		func(context.Context, []string, [][]any) (int64, error) { return 1, nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestLoadBatches_InvalidArgs(t *testing.T) {
	t.Parallel()

	if _, err := LoadBatches(context.Background(), nil, nil, 0, nil); err == nil {
		t.Fatalf("expected error for batchSize=0")
	}
	if _, err := LoadBatches(context.Background(), nil, nil, 1, nil); err == nil {
		t.Fatalf("expected error for nil copyFn")
	}
}
