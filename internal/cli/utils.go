// Package cli provides CLI output utilities for Shirabe.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/karakuri/shirabe/internal/models"
	"github.com/karakuri/shirabe/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
	// OutputCompact is one result per line.
	OutputCompact SearchOutputFormat = "compact"
)

// SearchResponse is the search result payload written by WriteSearchResults
// and returned by the HTTP API.
type SearchResponse struct {
	Results []models.SearchResult `json:"results"`
	Count   int                   `json:"count"`
}

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		writeSearchResultsCompact(w, response)
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results\n\n", response.Count)
	for i, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, result.Score)
		fmt.Fprintf(w, "Document: %s", result.DocumentTitle)
		if result.SourcePath != "" {
			fmt.Fprintf(w, " (%s)", result.SourcePath)
		}
		fmt.Fprintf(w, "\nPassage: %s (#%d)\n", result.PassageID, result.SequenceIndex)
		fmt.Fprintf(w, "\n%s\n", utils.Truncate(result.Content, 200))
		fmt.Fprintln(w)
	}
}

func writeSearchResultsCompact(w io.Writer, response *SearchResponse) {
	for _, result := range response.Results {
		fmt.Fprintf(w, "%.4f\t%s\t#%d\t%s\n",
			result.Score, result.DocumentTitle, result.SequenceIndex, TruncateWords(result.Content, 12))
	}
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
