package index

import (
	"errors"
	"math"
	"testing"

	"github.com/karakuri/shirabe/internal/models"
)

func doc(id, title, path string) models.Document {
	return models.Document{ID: id, Title: title, SourcePath: path, Content: "content of " + id}
}

func passage(pid, did string, seq int, vec []float64) models.EmbeddedPassage {
	return models.EmbeddedPassage{
		PassageID:     pid,
		DocumentID:    did,
		Content:       "passage " + pid,
		Vector:        vec,
		SequenceIndex: seq,
	}
}

func TestSearch_ExactMatchScoresOne(t *testing.T) {
	idx := New("proj")
	AppendDocument(idx, doc("d1", "Doc One", "/a.md"), []models.EmbeddedPassage{
		passage("p0", "d1", 0, []float64{1, 0, 0}),
		passage("p1", "d1", 1, []float64{0.5, 0.5, 0}),
	})

	results, err := Search(idx, []float64{1, 0, 0}, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].PassageID != "p0" {
		t.Errorf("top result %s, want p0", results[0].PassageID)
	}
	if math.Abs(results[0].Score-1.0) > 1e-9 {
		t.Errorf("identical vector score %f, want 1.0", results[0].Score)
	}
	if results[0].DocumentTitle != "Doc One" || results[0].SourcePath != "/a.md" {
		t.Errorf("document fields not resolved: %+v", results[0])
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx := New("proj")
	results, err := Search(idx, []float64{1, 0}, 5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("empty index should return empty results, got %d", len(results))
	}
}

func TestSearch_DimensionMismatch(t *testing.T) {
	idx := New("proj")
	AppendDocument(idx, doc("d1", "t", ""), []models.EmbeddedPassage{
		passage("p0", "d1", 0, []float64{1, 0, 0}),
	})
	_, err := Search(idx, []float64{1, 0}, 5, 0)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSearch_MinSimilarityAndTopK(t *testing.T) {
	idx := New("proj")
	AppendDocument(idx, doc("d1", "Doc One", "/one"), []models.EmbeddedPassage{
		passage("a0", "d1", 0, []float64{1, 0}),
		passage("a1", "d1", 1, []float64{0.9, 0.1}),
		passage("a2", "d1", 2, []float64{0, 1}),
	})
	AppendDocument(idx, doc("d2", "Doc Two", "/two"), []models.EmbeddedPassage{
		passage("b0", "d2", 0, []float64{-1, 0}),
	})

	results, err := Search(idx, []float64{1, 0}, 2, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].PassageID != "a0" || results[1].PassageID != "a1" {
		t.Errorf("ranking wrong: %s, %s", results[0].PassageID, results[1].PassageID)
	}
}

func TestSearch_StableTieBreak(t *testing.T) {
	idx := New("proj")
	vec := []float64{0.6, 0.8}
	AppendDocument(idx, doc("d1", "t", ""), []models.EmbeddedPassage{
		passage("first", "d1", 0, vec),
		passage("second", "d1", 1, vec),
		passage("third", "d1", 2, vec),
	})
	results, err := Search(idx, []float64{0.6, 0.8}, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	order := []string{"first", "second", "third"}
	for i, want := range order {
		if results[i].PassageID != want {
			t.Errorf("tie-break broke insertion order: position %d is %s, want %s", i, results[i].PassageID, want)
		}
	}
}

func TestSearch_TwoDocumentScenario(t *testing.T) {
	// 2 documents, 3 passages each; query equal to passage 2 of document 1.
	idx := New("proj")
	target := []float64{0.2, 0.4, 0.6}
	AppendDocument(idx, doc("d1", "Doc One", "/one.md"), []models.EmbeddedPassage{
		passage("d1p0", "d1", 0, []float64{1, 0, 0}),
		passage("d1p1", "d1", 1, target),
		passage("d1p2", "d1", 2, []float64{0, 0, 1}),
	})
	AppendDocument(idx, doc("d2", "Doc Two", "/two.md"), []models.EmbeddedPassage{
		passage("d2p0", "d2", 0, []float64{0, 1, 0}),
		passage("d2p1", "d2", 1, []float64{0, 1, 1}),
		passage("d2p2", "d2", 2, []float64{1, 1, 0}),
	})

	results, err := Search(idx, target, 1, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly 1 result, got %d", len(results))
	}
	r := results[0]
	if r.PassageID != "d1p1" || r.DocumentTitle != "Doc One" || r.SourcePath != "/one.md" {
		t.Errorf("wrong result: %+v", r)
	}
	if r.Content != "passage d1p1" {
		t.Errorf("result content %q", r.Content)
	}
}

func TestSearch_UnknownDocumentMarker(t *testing.T) {
	idx := New("proj")
	// Dangling reference: passage without its document. Search degrades to the
	// marker instead of failing.
	idx.EmbeddedPassages = append(idx.EmbeddedPassages, passage("p0", "ghost", 0, []float64{1}))
	results, err := Search(idx, []float64{1}, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].DocumentTitle != models.UnknownDocument || results[0].SourcePath != models.UnknownDocument {
		t.Errorf("expected unknown markers, got %+v", results[0])
	}
}

func TestRemoveDocument(t *testing.T) {
	idx := New("proj")
	AppendDocument(idx, doc("d1", "t1", ""), []models.EmbeddedPassage{
		passage("a0", "d1", 0, []float64{1}),
		passage("a1", "d1", 1, []float64{1}),
	})
	AppendDocument(idx, doc("d2", "t2", ""), []models.EmbeddedPassage{
		passage("b0", "d2", 0, []float64{1}),
		passage("b1", "d2", 1, []float64{1}),
		passage("b2", "d2", 2, []float64{1}),
	})

	before := idx.LastUpdated
	if n := RemoveDocument(idx, "d1"); n != 2 {
		t.Errorf("removed %d passages, want 2", n)
	}
	if len(idx.Documents) != 1 || idx.Documents[0].ID != "d2" {
		t.Errorf("documents after remove: %+v", idx.Documents)
	}
	if len(idx.EmbeddedPassages) != 3 {
		t.Fatalf("passages after remove: %d", len(idx.EmbeddedPassages))
	}
	// Surviving passages keep their SequenceIndex values, not renumbered.
	for i, p := range idx.EmbeddedPassages {
		if p.DocumentID != "d2" || p.SequenceIndex != i {
			t.Errorf("passage %d: %+v", i, p)
		}
	}
	if idx.LastUpdated.Before(before) {
		t.Error("LastUpdated not bumped")
	}
}

func TestRemoveDocument_AbsentIsNoop(t *testing.T) {
	idx := New("proj")
	AppendDocument(idx, doc("d1", "t", ""), []models.EmbeddedPassage{passage("p", "d1", 0, []float64{1})})
	if n := RemoveDocument(idx, "nope"); n != 0 {
		t.Errorf("removed %d, want 0", n)
	}
	if len(idx.Documents) != 1 || len(idx.EmbeddedPassages) != 1 {
		t.Error("no-op remove mutated the index")
	}
}

func TestClear(t *testing.T) {
	idx := New("proj")
	AppendDocument(idx, doc("d1", "t", ""), []models.EmbeddedPassage{passage("p", "d1", 0, []float64{1})})
	Clear(idx)
	if len(idx.Documents) != 0 || len(idx.EmbeddedPassages) != 0 {
		t.Error("clear left data behind")
	}
	if idx.ProjectHash != "proj" {
		t.Error("clear should keep the project hash")
	}
}

func TestCosineSimilarity_ZeroNorm(t *testing.T) {
	s, err := CosineSimilarity([]float64{0, 0}, []float64{1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if s != 0 {
		t.Errorf("zero-norm similarity %f, want 0", s)
	}
}

func TestDocumentBySourcePath(t *testing.T) {
	idx := New("proj")
	AppendDocument(idx, doc("d1", "t", "/x/y.md"), nil)
	if d, ok := DocumentBySourcePath(idx, "/x/y.md"); !ok || d.ID != "d1" {
		t.Errorf("lookup failed: %v %v", d, ok)
	}
	if _, ok := DocumentBySourcePath(idx, "/missing"); ok {
		t.Error("lookup of missing path should fail")
	}
}
