// Package index implements the in-memory vector index: an explicitly owned
// collection of documents and embedded passages with brute-force cosine
// ranking. All mutation of a models.Index goes through these operations.
//
// The index has no internal locking; within one session operations run
// sequentially and concurrent callers must synchronize externally.
package index

import (
	"sort"
	"time"

	"github.com/karakuri/shirabe/internal/models"
)

// New returns an empty index for the given project hash.
func New(projectHash string) *models.Index {
	return &models.Index{
		Documents:        make([]models.Document, 0),
		EmbeddedPassages: make([]models.EmbeddedPassage, 0),
		LastUpdated:      time.Now().UTC(),
		ProjectHash:      projectHash,
	}
}

// AppendDocument appends doc and all of its embedded passages to idx.
// Passages must already be in SequenceIndex order; append is the only
// transition from the empty to the populated state.
func AppendDocument(idx *models.Index, doc models.Document, passages []models.EmbeddedPassage) {
	idx.Documents = append(idx.Documents, doc)
	idx.EmbeddedPassages = append(idx.EmbeddedPassages, passages...)
	idx.LastUpdated = time.Now().UTC()
}

// RemoveDocument removes the document with the given id and exactly its
// passages; passages of other documents keep their SequenceIndex values.
// Absent ids are a no-op. Returns the number of passages removed.
func RemoveDocument(idx *models.Index, docID string) int {
	found := false
	docs := idx.Documents[:0]
	for _, d := range idx.Documents {
		if d.ID == docID {
			found = true
			continue
		}
		docs = append(docs, d)
	}
	if !found {
		return 0
	}
	idx.Documents = docs
	removed := 0
	passages := idx.EmbeddedPassages[:0]
	for _, p := range idx.EmbeddedPassages {
		if p.DocumentID == docID {
			removed++
			continue
		}
		passages = append(passages, p)
	}
	idx.EmbeddedPassages = passages
	idx.LastUpdated = time.Now().UTC()
	return removed
}

// Search ranks every embedded passage in idx against queryVec by cosine
// similarity, keeps scores >= minSimilarity, and returns at most topK results
// in descending score order. Ties preserve insertion order. An index with no
// passages yields an empty result, not an error. Returns ErrDimensionMismatch
// when a stored vector's length differs from the query's.
func Search(idx *models.Index, queryVec []float64, topK int, minSimilarity float64) ([]models.SearchResult, error) {
	results := make([]models.SearchResult, 0, topK)
	if len(idx.EmbeddedPassages) == 0 {
		return results, nil
	}
	docs := make(map[string]models.Document, len(idx.Documents))
	for _, d := range idx.Documents {
		docs[d.ID] = d
	}
	for _, p := range idx.EmbeddedPassages {
		score, err := CosineSimilarity(queryVec, p.Vector)
		if err != nil {
			return nil, err
		}
		if score < minSimilarity {
			continue
		}
		title, path := models.UnknownDocument, models.UnknownDocument
		if d, ok := docs[p.DocumentID]; ok {
			title, path = d.Title, d.SourcePath
		}
		results = append(results, models.SearchResult{
			DocumentID:    p.DocumentID,
			DocumentTitle: title,
			SourcePath:    path,
			PassageID:     p.PassageID,
			Content:       p.Content,
			SequenceIndex: p.SequenceIndex,
			Score:         score,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Clear discards all documents and passages, returning idx to the empty state.
func Clear(idx *models.Index) {
	idx.Documents = idx.Documents[:0]
	idx.EmbeddedPassages = idx.EmbeddedPassages[:0]
	idx.LastUpdated = time.Now().UTC()
}

// DocumentByID returns the document with the given id, if present.
func DocumentByID(idx *models.Index, id string) (models.Document, bool) {
	for _, d := range idx.Documents {
		if d.ID == id {
			return d, true
		}
	}
	return models.Document{}, false
}

// DocumentBySourcePath returns the first document with the given source path.
func DocumentBySourcePath(idx *models.Index, path string) (models.Document, bool) {
	for _, d := range idx.Documents {
		if d.SourcePath == path {
			return d, true
		}
	}
	return models.Document{}, false
}
