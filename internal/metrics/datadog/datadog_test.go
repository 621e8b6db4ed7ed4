package datadog

import (
	"reflect"
	"testing"

	"datapipe/internal/metrics"
)

type call struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	calls  []call
	closed bool
}

func (f *fakeClient) Count(name string, value int64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"count", name, float64(value), tags})
	return nil
}

func (f *fakeClient) Histogram(name string, value float64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"histogram", name, value, tags})
	return nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestNewBackend_RequiresAddr(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend(Config{}); err == nil {
		t.Fatal("NewBackend with empty Addr: want error")
	}
}

func TestNewBackend_UDP(t *testing.T) {
	t.Parallel()

	b, err := NewBackend(Config{Addr: "127.0.0.1:8125", Namespace: "datapipe.", GlobalTags: []string{"env:test"}})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestBackendForwardsWithSortedTags(t *testing.T) {
	t.Parallel()

	fc := &fakeClient{}
	b := &Backend{client: fc}

	lbls := metrics.Labels{"stage": "upload", "pipeline": "demo", "status": "success"}
	b.IncCounter(metrics.StageTotal, 2, lbls)
	b.ObserveHistogram(metrics.StageDurationSeconds, 0.25, lbls)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	wantTags := []string{"pipeline:demo", "stage:upload", "status:success"}
	want := []call{
		{"count", metrics.StageTotal, 2, wantTags},
		{"histogram", metrics.StageDurationSeconds, 0.25, wantTags},
	}
	if !reflect.DeepEqual(fc.calls, want) {
		t.Fatalf("calls = %#v, want %#v", fc.calls, want)
	}
	if !fc.closed {
		t.Fatal("Flush did not close the client")
	}
}

func TestZeroBackendIsNoop(t *testing.T) {
	t.Parallel()

	var b Backend
	b.IncCounter(metrics.RowsTotal, 1, nil)
	b.ObserveHistogram(metrics.StageDurationSeconds, 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := labelsToTags(nil); got != nil {
		t.Fatalf("labelsToTags(nil) = %v, want nil", got)
	}
}
