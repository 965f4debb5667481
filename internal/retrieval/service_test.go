package retrieval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/karakuri/shirabe/internal/chunker"
	"github.com/karakuri/shirabe/internal/embedding"
	"github.com/karakuri/shirabe/internal/extract"
	"github.com/karakuri/shirabe/internal/models"
	"github.com/karakuri/shirabe/internal/store"
)

// failingEmbedder embeds like the mock but fails EmbedBatch once the batch
// contains failAt or more texts, simulating a provider dying mid-document.
type failingEmbedder struct {
	*embedding.MockEmbedder
	failAt int
}

func (e *failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) >= e.failAt {
		return nil, errors.New("provider unavailable")
	}
	return e.MockEmbedder.EmbedBatch(ctx, texts)
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	c := chunker.NewChunker(40, 10)
	st := store.NewDiskStore(t.TempDir())
	return NewService(c, embedding.NewMockEmbedder(32), st, "test-project", opts...)
}

func TestService_IndexAndSearch(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	doc, err := s.IndexDocument(ctx, models.DocumentInput{
		Title:   "notes",
		Content: "The quick brown fox.",
	})
	if err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if doc.ID == "" {
		t.Fatal("document id not assigned")
	}

	results, err := s.Search(ctx, "The quick brown fox.", 5, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].DocumentID != doc.ID {
		t.Errorf("top result document = %s, want %s", results[0].DocumentID, doc.ID)
	}
	if results[0].DocumentTitle != "notes" {
		t.Errorf("top result title = %q", results[0].DocumentTitle)
	}
	if results[0].Score < 0.999 {
		t.Errorf("exact-content query score = %f, want ~1.0", results[0].Score)
	}
}

func TestService_EmbeddingFailureLeavesIndexUnchanged(t *testing.T) {
	c := chunker.NewChunker(20, 5)
	emb := &failingEmbedder{MockEmbedder: embedding.NewMockEmbedder(32), failAt: 2}
	s := NewService(c, emb, store.NewDiskStore(t.TempDir()), "test-project")
	ctx := context.Background()

	good, err := s.IndexDocument(ctx, models.DocumentInput{Title: "small", Content: "short text"})
	if err != nil {
		t.Fatalf("single-passage document should index: %v", err)
	}

	before := s.Stats()
	// Long enough to produce three passages, so the batch trips the failure.
	_, err = s.IndexDocument(ctx, models.DocumentInput{
		Title:   "big",
		Content: "first sentence here. second sentence here. third sentence here.",
	})
	if err == nil {
		t.Fatal("expected embedding error")
	}

	after := s.Stats()
	if after != before {
		t.Errorf("index changed after failed indexing: before=%+v after=%+v", before, after)
	}
	if _, ok := s.FindDocumentBySourcePath(""); ok {
		t.Error("unexpected document by empty source path")
	}
	if !s.RemoveDocument(good.ID) {
		t.Error("surviving document should still be removable")
	}
}

func TestService_SearchValidation(t *testing.T) {
	s := newTestService(t)
	if _, err := s.Search(context.Background(), "   ", 5, 0); err == nil {
		t.Error("expected error for blank query")
	}
}

func TestService_SearchEmptyIndex(t *testing.T) {
	s := newTestService(t)
	results, err := s.Search(context.Background(), "anything", 5, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from empty index", len(results))
	}
}

func TestService_RemoveDocument(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	doc, err := s.IndexDocument(ctx, models.DocumentInput{Title: "a", Content: "some content"})
	if err != nil {
		t.Fatal(err)
	}
	if !s.RemoveDocument(doc.ID) {
		t.Error("expected removal of existing document")
	}
	if s.RemoveDocument(doc.ID) {
		t.Error("second removal should report false")
	}
	if s.RemoveDocument("never-indexed") {
		t.Error("unknown id should report false")
	}
	if st := s.Stats(); st.Documents != 0 || st.Passages != 0 {
		t.Errorf("stats after removal: %+v", st)
	}
}

func TestService_SaveAndRestore(t *testing.T) {
	dir := t.TempDir()
	c := chunker.NewChunker(40, 10)
	emb := embedding.NewMockEmbedder(32)
	ctx := context.Background()

	s1 := NewService(c, emb, store.NewDiskStore(dir), "proj")
	doc, err := s1.IndexDocument(ctx, models.DocumentInput{Title: "persisted", Content: "durable content here"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s1.SaveIndex(ctx); err != nil {
		t.Fatalf("SaveIndex: %v", err)
	}

	s2 := NewService(c, emb, store.NewDiskStore(dir), "proj")
	ok, err := s2.RestoreIndex(ctx)
	if err != nil {
		t.Fatalf("RestoreIndex: %v", err)
	}
	if !ok {
		t.Fatal("expected snapshot to restore")
	}
	results, err := s2.Search(ctx, "durable content here", 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].DocumentID != doc.ID {
		t.Errorf("restored search results: %+v", results)
	}
}

func TestService_RestoreWithoutSnapshot(t *testing.T) {
	s := newTestService(t)
	ok, err := s.RestoreIndex(context.Background())
	if err != nil {
		t.Fatalf("RestoreIndex: %v", err)
	}
	if ok {
		t.Error("expected no snapshot")
	}
	if s.GetIndex() != nil {
		t.Error("index should stay nil")
	}
}

func TestService_RestoreCorruptSnapshotStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "proj.json"), []byte("{broken"), 0600); err != nil {
		t.Fatal(err)
	}
	c := chunker.NewChunker(40, 10)
	s := NewService(c, embedding.NewMockEmbedder(32), store.NewDiskStore(dir), "proj")

	ok, err := s.RestoreIndex(context.Background())
	if err != nil {
		t.Fatalf("RestoreIndex: %v", err)
	}
	if ok {
		t.Error("corrupt snapshot should be treated as absent")
	}
	if st := s.Stats(); st.Documents != 0 {
		t.Errorf("stats after corrupt restore: %+v", st)
	}
}

func TestService_IndexFileReplacesPrevious(t *testing.T) {
	s := newTestService(t, WithExtractor(extract.NewExtractor()))
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte("original file content"), 0600); err != nil {
		t.Fatal(err)
	}
	first, err := s.IndexFile(ctx, path)
	if err != nil {
		t.Fatalf("IndexFile: %v", err)
	}

	if err := os.WriteFile(path, []byte("updated file content"), 0600); err != nil {
		t.Fatal(err)
	}
	second, err := s.IndexFile(ctx, path)
	if err != nil {
		t.Fatalf("IndexFile again: %v", err)
	}

	if st := s.Stats(); st.Documents != 1 {
		t.Errorf("re-indexing same path should replace, got %d documents", st.Documents)
	}
	if first.ID == second.ID {
		t.Error("replacement should get a new document id")
	}
	got, ok := s.FindDocumentBySourcePath(second.SourcePath)
	if !ok || got.Content != "updated file content" {
		t.Errorf("document by source path: ok=%v content=%q", ok, got.Content)
	}
}

func TestService_IndexFileRejectsDirectory(t *testing.T) {
	s := newTestService(t)
	if _, err := s.IndexFile(context.Background(), t.TempDir()); err == nil {
		t.Error("expected error for directory")
	}
}

func TestService_ClearIndex(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	if _, err := s.IndexDocument(ctx, models.DocumentInput{Title: "x", Content: "content"}); err != nil {
		t.Fatal(err)
	}
	s.ClearIndex()
	if s.GetIndex() != nil {
		t.Error("index not cleared")
	}
	if st := s.Stats(); st.Documents != 0 || st.ProjectHash != "test-project" {
		t.Errorf("stats after clear: %+v", st)
	}
}
