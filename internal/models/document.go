// Package models defines core data structures for documents, passages, and the vector index.
package models

import "time"

// Document represents one indexed source unit (a file, a README section, etc.).
// Documents are immutable after creation; the ID is generated, never derived
// from content, so re-indexing the same path produces a new document unless
// the caller removes the old one first.
type Document struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	SourcePath string            `json:"source_path,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Passage is a bounded contiguous piece of a document's content, the unit of
// embedding and retrieval. StartOffset/EndOffset are rune offsets into the
// owning document's content and satisfy 0 <= Start < End <= len(content).
type Passage struct {
	ID            string `json:"id"`
	DocumentID    string `json:"document_id"`
	Content       string `json:"content"`
	SequenceIndex int    `json:"sequence_index"`
	StartOffset   int    `json:"start_offset"`
	EndOffset     int    `json:"end_offset"`
}

// EmbeddedPassage pairs a passage with its embedding vector. The passage
// content is duplicated here so the index can answer queries without
// dereferencing a separate passage store.
type EmbeddedPassage struct {
	PassageID     string    `json:"passage_id"`
	DocumentID    string    `json:"document_id"`
	Content       string    `json:"content"`
	Vector        []float64 `json:"vector"`
	SequenceIndex int       `json:"sequence_index"`
}

// Index is the in-memory (and persisted) collection of documents and embedded
// passages that search operates over. Every EmbeddedPassage.DocumentID must
// reference a document present in Documents. ProjectHash is an opaque
// identifier set by the caller, not computed here.
type Index struct {
	Documents        []Document        `json:"documents"`
	EmbeddedPassages []EmbeddedPassage `json:"embedded_passages"`
	LastUpdated      time.Time         `json:"last_updated"`
	ProjectHash      string            `json:"project_hash"`
}

// DocumentInput is the input for indexing a new document.
type DocumentInput struct {
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	SourcePath string            `json:"source_path,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}
