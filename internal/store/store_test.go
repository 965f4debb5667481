package store

import (
	"context"
	"testing"
	"time"

	"github.com/karakuri/shirabe/internal/models"
)

func sampleIndex() *models.Index {
	return &models.Index{
		Documents: []models.Document{
			{
				ID:         "doc-1",
				Title:      "README",
				Content:    "Alpha beta gamma.",
				SourcePath: "/proj/README.md",
				Metadata:   map[string]string{"lang": "en", "kind": "doc"},
				CreatedAt:  time.Date(2026, 3, 1, 10, 30, 0, 123456789, time.UTC),
			},
			{
				ID:        "doc-2",
				Title:     "main.go",
				Content:   "package main",
				CreatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
			},
		},
		EmbeddedPassages: []models.EmbeddedPassage{
			{PassageID: "p-1", DocumentID: "doc-1", Content: "Alpha beta", Vector: []float64{0.1, -0.2, 0.3}, SequenceIndex: 0},
			{PassageID: "p-2", DocumentID: "doc-1", Content: "beta gamma.", Vector: []float64{0.4, 0.5, -0.6}, SequenceIndex: 1},
			{PassageID: "p-3", DocumentID: "doc-2", Content: "package main", Vector: []float64{1, 0, 0}, SequenceIndex: 0},
		},
		LastUpdated: time.Date(2026, 3, 2, 12, 0, 0, 987654321, time.UTC),
		ProjectHash: "abc123",
	}
}

// assertIndexEqual compares two snapshots field for field. Timestamps compare
// by instant, not struct identity.
func assertIndexEqual(t *testing.T, got, want *models.Index) {
	t.Helper()
	if got == nil {
		t.Fatal("loaded index is nil")
	}
	if got.ProjectHash != want.ProjectHash {
		t.Errorf("ProjectHash %q, want %q", got.ProjectHash, want.ProjectHash)
	}
	if !got.LastUpdated.Equal(want.LastUpdated) {
		t.Errorf("LastUpdated %v, want %v", got.LastUpdated, want.LastUpdated)
	}
	if len(got.Documents) != len(want.Documents) {
		t.Fatalf("documents: %d, want %d", len(got.Documents), len(want.Documents))
	}
	for i, w := range want.Documents {
		g := got.Documents[i]
		if g.ID != w.ID || g.Title != w.Title || g.Content != w.Content || g.SourcePath != w.SourcePath {
			t.Errorf("document %d: %+v, want %+v", i, g, w)
		}
		if !g.CreatedAt.Equal(w.CreatedAt) {
			t.Errorf("document %d CreatedAt %v, want %v", i, g.CreatedAt, w.CreatedAt)
		}
		if len(g.Metadata) != len(w.Metadata) {
			t.Errorf("document %d metadata %v, want %v", i, g.Metadata, w.Metadata)
		}
		for k, v := range w.Metadata {
			if g.Metadata[k] != v {
				t.Errorf("document %d metadata[%s]=%q, want %q", i, k, g.Metadata[k], v)
			}
		}
	}
	if len(got.EmbeddedPassages) != len(want.EmbeddedPassages) {
		t.Fatalf("passages: %d, want %d", len(got.EmbeddedPassages), len(want.EmbeddedPassages))
	}
	for i, w := range want.EmbeddedPassages {
		g := got.EmbeddedPassages[i]
		if g.PassageID != w.PassageID || g.DocumentID != w.DocumentID ||
			g.Content != w.Content || g.SequenceIndex != w.SequenceIndex {
			t.Errorf("passage %d: %+v, want %+v", i, g, w)
		}
		if len(g.Vector) != len(w.Vector) {
			t.Fatalf("passage %d vector length %d, want %d", i, len(g.Vector), len(w.Vector))
		}
		for j := range w.Vector {
			if g.Vector[j] != w.Vector[j] {
				t.Errorf("passage %d vector[%d]=%v, want %v", i, j, g.Vector[j], w.Vector[j])
			}
		}
	}
}

// roundTrip exercises the common Store contract against any backend.
func roundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	want := sampleIndex()

	if idx, err := s.Load(ctx, "proj"); err != nil || idx != nil {
		t.Fatalf("Load before Save: idx=%v err=%v", idx, err)
	}
	if ok, err := s.Exists(ctx, "proj"); err != nil || ok {
		t.Fatalf("Exists before Save: ok=%v err=%v", ok, err)
	}
	if n, err := s.Size(ctx, "proj"); err != nil || n != 0 {
		t.Fatalf("Size before Save: n=%d err=%v", n, err)
	}

	if err := s.Save(ctx, "proj", want); err != nil {
		t.Fatal(err)
	}
	got, err := s.Load(ctx, "proj")
	if err != nil {
		t.Fatal(err)
	}
	assertIndexEqual(t, got, want)

	if ok, err := s.Exists(ctx, "proj"); err != nil || !ok {
		t.Fatalf("Exists after Save: ok=%v err=%v", ok, err)
	}
	if n, err := s.Size(ctx, "proj"); err != nil || n == 0 {
		t.Fatalf("Size after Save: n=%d err=%v", n, err)
	}

	// Overwrite with a smaller snapshot.
	smaller := sampleIndex()
	smaller.Documents = smaller.Documents[:1]
	smaller.EmbeddedPassages = smaller.EmbeddedPassages[:2]
	if err := s.Save(ctx, "proj", smaller); err != nil {
		t.Fatal(err)
	}
	got, err = s.Load(ctx, "proj")
	if err != nil {
		t.Fatal(err)
	}
	assertIndexEqual(t, got, smaller)

	if err := s.Delete(ctx, "proj"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Exists(ctx, "proj"); ok {
		t.Error("snapshot still exists after Delete")
	}
	// Deleting an absent key is a no-op.
	if err := s.Delete(ctx, "proj"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}
