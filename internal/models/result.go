package models

// UnknownDocument is the title/path marker used when a search hit references
// a document id that is not present in the index. This should not occur under
// the index invariant; search degrades to the marker instead of failing.
const UnknownDocument = "unknown"

// SearchResult is a single ranked passage hit.
type SearchResult struct {
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	SourcePath    string  `json:"source_path,omitempty"`
	PassageID     string  `json:"passage_id"`
	Content       string  `json:"content"`
	SequenceIndex int     `json:"sequence_index"`
	Score         float64 `json:"score"`
}
