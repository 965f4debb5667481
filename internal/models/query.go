package models

import (
	"errors"
	"strings"
)

// ErrEmptyQuery is returned by Validate when the query text is empty or
// whitespace only.
var ErrEmptyQuery = errors.New("query cannot be empty")

// Default and maximum values applied by SearchQuery.Validate.
const (
	DefaultTopK          = 10
	MaxTopK              = 100
	DefaultMinSimilarity = 0.0
)

// SearchQuery represents a similarity search request.
type SearchQuery struct {
	Query         string  `json:"query"`
	TopK          int     `json:"top_k,omitempty"`
	MinSimilarity float64 `json:"min_similarity,omitempty"`
}

// Validate ensures the query has valid fields and sets defaults.
// Returns an error if the query text is empty; TopK is normalized into
// [1, MaxTopK] and MinSimilarity is clamped into [0, 1].
func (q *SearchQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return ErrEmptyQuery
	}
	if q.TopK <= 0 {
		q.TopK = DefaultTopK
	}
	if q.TopK > MaxTopK {
		q.TopK = MaxTopK
	}
	if q.MinSimilarity < 0 {
		q.MinSimilarity = 0
	}
	if q.MinSimilarity > 1 {
		q.MinSimilarity = 1
	}
	return nil
}
