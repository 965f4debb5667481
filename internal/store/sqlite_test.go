package store

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	roundTrip(t, newTestSQLiteStore(t))
}

func TestSQLiteStore_KeysAreIsolated(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	a := sampleIndex()
	b := sampleIndex()
	b.ProjectHash = "other"
	b.Documents = b.Documents[:1]
	b.EmbeddedPassages = b.EmbeddedPassages[:1]

	if err := s.Save(ctx, "a", a); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "b", b); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	assertIndexEqual(t, got, b)
}

func TestSQLiteStore_PreservesInsertionOrder(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	want := sampleIndex()
	if err := s.Save(ctx, "proj", want); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx, "proj")
	if err != nil {
		t.Fatal(err)
	}
	for i := range want.EmbeddedPassages {
		if got.EmbeddedPassages[i].PassageID != want.EmbeddedPassages[i].PassageID {
			t.Fatalf("passage order changed at %d: %s", i, got.EmbeddedPassages[i].PassageID)
		}
	}
}
