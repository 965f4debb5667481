// Package retrieval orchestrates chunking, embedding, the vector index, and
// persistence behind the engine's upstream contract: index a document, search
// for passages, remove, save, restore.
package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/karakuri/shirabe/internal/chunker"
	"github.com/karakuri/shirabe/internal/embedding"
	"github.com/karakuri/shirabe/internal/extract"
	"github.com/karakuri/shirabe/internal/index"
	"github.com/karakuri/shirabe/internal/models"
	"github.com/karakuri/shirabe/internal/store"
	"go.uber.org/zap"
)

// Service is the retrieval engine. It owns the in-memory index and routes all
// mutation through the index package's operations. Operations within one
// session run sequentially; the Service does no internal locking.
type Service struct {
	chunker     *chunker.Chunker
	embedder    embedding.Embedder
	store       store.Store
	extractor   *extract.Extractor // optional; nil treats all files as plain text
	projectKey  string
	byParagraph bool
	idx         *models.Index // nil until created, loaded, or restored
	logger      *zap.Logger   // optional; when set, logs debug events
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithExtractor sets the file-to-text extractor used by IndexFile.
func WithExtractor(e *extract.Extractor) Option {
	return func(s *Service) { s.extractor = e }
}

// WithParagraphChunking switches IndexDocument to paragraph-based chunking.
func WithParagraphChunking() Option {
	return func(s *Service) { s.byParagraph = true }
}

// Stats summarizes the in-memory index for status surfaces.
type Stats struct {
	Documents   int       `json:"documents"`
	Passages    int       `json:"passages"`
	LastUpdated time.Time `json:"last_updated"`
	ProjectHash string    `json:"project_hash"`
}

// NewService creates the retrieval engine. projectKey addresses the persisted
// snapshot and doubles as the index's project hash.
func NewService(c *chunker.Chunker, e embedding.Embedder, st store.Store, projectKey string, opts ...Option) *Service {
	s := &Service{
		chunker:    c,
		embedder:   e,
		store:      st,
		projectKey: projectKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ensureIndex returns the current index, creating an empty one on first use.
func (s *Service) ensureIndex() *models.Index {
	if s.idx == nil {
		s.idx = index.New(s.projectKey)
	}
	return s.idx
}

// IndexDocument chunks input's content, embeds every passage in one batch,
// and appends the document with its embedded passages to the index. The
// append is all-or-nothing: any chunking or embedding failure leaves the
// index exactly as it was.
func (s *Service) IndexDocument(ctx context.Context, input models.DocumentInput) (*models.Document, error) {
	doc := models.Document{
		ID:         uuid.New().String(),
		Title:      input.Title,
		Content:    input.Content,
		SourcePath: input.SourcePath,
		Metadata:   input.Metadata,
		CreatedAt:  time.Now().UTC(),
	}

	var passages []models.Passage
	var err error
	if s.byParagraph {
		passages, err = s.chunker.ChunkByParagraph(doc.ID, doc.Content)
	} else {
		passages, err = s.chunker.Chunk(doc.ID, doc.Content)
	}
	if err != nil {
		return nil, fmt.Errorf("chunk document: %w", err)
	}

	var embedded []models.EmbeddedPassage
	if len(passages) > 0 {
		texts := make([]string, len(passages))
		for i, p := range passages {
			texts[i] = p.Content
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed passages: %w", err)
		}
		if len(vectors) != len(passages) {
			return nil, fmt.Errorf("embed passages: got %d vectors for %d passages", len(vectors), len(passages))
		}
		// Passages were chunked in SequenceIndex order and EmbedBatch returns
		// vectors in input order, so stored order stays deterministic.
		embedded = make([]models.EmbeddedPassage, len(passages))
		for i, p := range passages {
			embedded[i] = models.EmbeddedPassage{
				PassageID:     p.ID,
				DocumentID:    p.DocumentID,
				Content:       p.Content,
				Vector:        vectors[i],
				SequenceIndex: p.SequenceIndex,
			}
		}
	}

	index.AppendDocument(s.ensureIndex(), doc, embedded)
	if s.logger != nil {
		s.logger.Debug("document indexed",
			zap.String("id", doc.ID),
			zap.String("title", doc.Title),
			zap.Int("passages", len(embedded)),
		)
	}
	return &doc, nil
}

// IndexFile extracts text from path and indexes it as one document. Any
// previously indexed document with the same source path is removed first, so
// re-indexing a file replaces it rather than duplicating it.
func (s *Service) IndexFile(ctx context.Context, path string) (*models.Document, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}

	var content string
	if s.extractor != nil {
		content, err = s.extractor.Extract(absPath)
	} else {
		var raw []byte
		raw, err = os.ReadFile(absPath)
		content = string(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}

	if old, ok := s.FindDocumentBySourcePath(absPath); ok {
		s.RemoveDocument(old.ID)
	}
	return s.IndexDocument(ctx, models.DocumentInput{
		Title:      filepath.Base(absPath),
		Content:    content,
		SourcePath: absPath,
		Metadata: map[string]string{
			"source_mtime": info.ModTime().UTC().Format(time.RFC3339),
			"source_size":  fmt.Sprintf("%d", info.Size()),
		},
	})
}

// Search embeds the query and ranks all indexed passages against it. An
// empty or absent index yields empty results, not an error.
func (s *Service) Search(ctx context.Context, query string, topK int, minSimilarity float64) ([]models.SearchResult, error) {
	q := models.SearchQuery{Query: query, TopK: topK, MinSimilarity: minSimilarity}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if s.idx == nil || len(s.idx.EmbeddedPassages) == 0 {
		return []models.SearchResult{}, nil
	}
	queryVec, err := s.embedder.Embed(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := index.Search(s.idx, queryVec, q.TopK, q.MinSimilarity)
	if err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Debug("search completed", zap.String("query", q.Query), zap.Int("results", len(results)))
	}
	return results, nil
}

// RemoveDocument removes the document and all of its passages; absent ids are
// a no-op. Reports whether a document was removed.
func (s *Service) RemoveDocument(id string) bool {
	if s.idx == nil {
		return false
	}
	if _, ok := index.DocumentByID(s.idx, id); !ok {
		return false
	}
	removed := index.RemoveDocument(s.idx, id)
	if s.logger != nil {
		s.logger.Debug("document removed", zap.String("id", id), zap.Int("passages", removed))
	}
	return true
}

// LoadIndex replaces the entire in-memory index with the given snapshot.
func (s *Service) LoadIndex(snapshot *models.Index) {
	s.idx = snapshot
}

// GetIndex returns the in-memory index, or nil when none exists.
func (s *Service) GetIndex() *models.Index {
	return s.idx
}

// ClearIndex discards the in-memory index; subsequent operations start from
// an empty index.
func (s *Service) ClearIndex() {
	s.idx = nil
}

// SaveIndex persists the current index snapshot under the project key.
// Nothing is written when no index exists.
func (s *Service) SaveIndex(ctx context.Context) error {
	if s.idx == nil {
		return nil
	}
	if err := s.store.Save(ctx, s.projectKey, s.idx); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

// RestoreIndex loads the persisted snapshot for the project key, replacing
// the in-memory index. Returns false when no usable snapshot exists (absent
// or quarantined), in which case the engine starts from scratch.
func (s *Service) RestoreIndex(ctx context.Context) (bool, error) {
	snapshot, err := s.store.Load(ctx, s.projectKey)
	if err != nil {
		return false, fmt.Errorf("restore index: %w", err)
	}
	if snapshot == nil {
		return false, nil
	}
	s.idx = snapshot
	return true, nil
}

// GetDocument returns the indexed document with the given id.
func (s *Service) GetDocument(id string) (models.Document, bool) {
	if s.idx == nil {
		return models.Document{}, false
	}
	return index.DocumentByID(s.idx, id)
}

// FindDocumentBySourcePath returns the first indexed document with the given
// source path.
func (s *Service) FindDocumentBySourcePath(path string) (models.Document, bool) {
	if s.idx == nil {
		return models.Document{}, false
	}
	return index.DocumentBySourcePath(s.idx, path)
}

// Stats returns counts for status reporting.
func (s *Service) Stats() Stats {
	if s.idx == nil {
		return Stats{ProjectHash: s.projectKey}
	}
	return Stats{
		Documents:   len(s.idx.Documents),
		Passages:    len(s.idx.EmbeddedPassages),
		LastUpdated: s.idx.LastUpdated,
		ProjectHash: s.idx.ProjectHash,
	}
}
