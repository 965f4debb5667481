package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"
)

// Default configuration for the OpenAI-compatible embeddings endpoint.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultModel      = "text-embedding-3-small"
	DefaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
)

// OpenAIConfig configures the OpenAI-compatible embeddings client.
type OpenAIConfig struct {
	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Any OpenAI-compatible endpoint works, e.g. a local Ollama or vLLM.
	BaseURL string
	// Model is the embedding model name (default: text-embedding-3-small).
	Model string
	// APIKeyEnv names the environment variable holding the API key.
	// Empty means no Authorization header (local endpoints).
	APIKeyEnv string
	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration
	// Dimensions is the expected vector size; 0 means accept whatever the
	// provider returns and lock it in on first use.
	Dimensions int
}

// OpenAIEmbedder generates embeddings via an OpenAI-compatible /embeddings
// endpoint. Provider response fields never leak past this adapter: responses
// are validated and converted to plain []float64 at the boundary.
type OpenAIEmbedder struct {
	client     *http.Client
	baseURL    string
	model      string
	apiKey     string
	dimensions int
	maxRetries int
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAIEmbedder creates an embeddings client from cfg.
func NewOpenAIEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	var key string
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	return &OpenAIEmbedder{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		apiKey:     key,
		dimensions: cfg.Dimensions,
		maxRetries: defaultMaxRetries,
	}
}

// Embed returns the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one vector per text, in input order. The provider may
// answer out of order; vectors are reassembled by response index before
// returning.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(embedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("embed: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay(attempt)):
			}
		}
		vecs, retryable, err := e.doRequest(ctx, body, len(texts))
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

func (e *OpenAIEmbedder) doRequest(ctx context.Context, body []byte, want int) (vecs [][]float64, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("embed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("embed: request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, true, fmt.Errorf("embed: read response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("embed: provider returned %s", resp.Status)
	}
	if resp.StatusCode >= 300 {
		var er embedResponse
		if json.Unmarshal(payload, &er) == nil && er.Error != nil {
			return nil, false, fmt.Errorf("embed: provider error: %s", er.Error.Message)
		}
		return nil, false, fmt.Errorf("embed: provider returned %s", resp.Status)
	}

	var out embedResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, false, fmt.Errorf("embed: decode response: %w", err)
	}
	if len(out.Data) != want {
		return nil, false, fmt.Errorf("embed: provider returned %d embeddings for %d inputs", len(out.Data), want)
	}
	sort.Slice(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
	vecs = make([][]float64, want)
	for i, d := range out.Data {
		if len(d.Embedding) == 0 {
			return nil, false, fmt.Errorf("embed: provider returned empty embedding at index %d", d.Index)
		}
		if e.dimensions == 0 {
			e.dimensions = len(d.Embedding)
		}
		if len(d.Embedding) != e.dimensions {
			return nil, false, fmt.Errorf("embed: provider returned %d-dim vector, expected %d", len(d.Embedding), e.dimensions)
		}
		vecs[i] = d.Embedding
	}
	return vecs, false, nil
}

// Dimensions returns the embedding dimension (0 until the first request when
// not configured).
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for the HTTP client.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

// retryDelay returns the exponential backoff delay for attempt, capped at 5s.
func retryDelay(attempt int) time.Duration {
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
