package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func sampleSnapshot() map[string][]time.Time {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return map[string][]time.Time{
		"tenant-a": {base, base.Add(10 * time.Second)},
		"tenant-b": {base.Add(30 * time.Second)},
	}
}

func testBackend(t *testing.T, backend Backend) {
	t.Helper()
	ctx := context.Background()

	// Empty load first.
	snap, err := backend.Load(ctx)
	if err != nil {
		t.Fatalf("Load() on empty backend = %v", err)
	}
	if len(snap) != 0 {
		t.Fatalf("empty backend returned %d entries", len(snap))
	}

	want := sampleSnapshot()
	if err := backend.Save(ctx, want); err != nil {
		t.Fatalf("Save() = %v", err)
	}

	got, err := backend.Load(ctx)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("loaded %d tenants, want %d", len(got), len(want))
	}
	for id, stamps := range want {
		if len(got[id]) != len(stamps) {
			t.Errorf("tenant %s: %d stamps, want %d", id, len(got[id]), len(stamps))
			continue
		}
		for i := range stamps {
			if !got[id][i].Equal(stamps[i]) {
				t.Errorf("tenant %s stamp %d = %v, want %v", id, i, got[id][i], stamps[i])
			}
		}
	}

	// Save replaces, never merges.
	if err := backend.Save(ctx, map[string][]time.Time{"tenant-c": {time.Now()}}); err != nil {
		t.Fatalf("second Save() = %v", err)
	}
	got, err = backend.Load(ctx)
	if err != nil {
		t.Fatalf("Load() after replace = %v", err)
	}
	if len(got) != 1 || len(got["tenant-c"]) != 1 {
		t.Errorf("replace semantics violated: %v", got)
	}
}

func TestMemoryBackend(t *testing.T) {
	backend := NewMemoryBackend()
	defer backend.Close()
	testBackend(t, backend)
}

func TestSQLiteBackend(t *testing.T) {
	backend, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "limits.db"))
	if err != nil {
		t.Fatalf("NewSQLiteBackend() = %v", err)
	}
	defer backend.Close()
	testBackend(t, backend)
}

func TestSQLiteBackend_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteBackend(""); err == nil {
		t.Error("expected error for empty db path")
	}
}

func TestSQLiteBackend_ReopenKeepsState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.db")
	ctx := context.Background()

	first, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	first.Close()

	second, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	snap, err := second.Load(ctx)
	if err != nil {
		t.Fatalf("Load() after reopen = %v", err)
	}
	if len(snap) != 2 {
		t.Errorf("got %d tenants after reopen, want 2", len(snap))
	}
}
