package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIEmbedder_BatchOrder(t *testing.T) {
	// Provider answers out of order; the adapter must restore input order.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if len(req.Input) != 3 {
			t.Errorf("got %d inputs", len(req.Input))
		}
		resp := map[string]any{
			"data": []map[string]any{
				{"index": 2, "embedding": []float64{0, 0, 3}},
				{"index": 0, "embedding": []float64{1, 0, 0}},
				{"index": 1, "embedding": []float64{0, 2, 0}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL, Model: "test-model"})
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 2 || vecs[2][2] != 3 {
		t.Errorf("batch order not restored: %v", vecs)
	}
	if e.Dimensions() != 3 {
		t.Errorf("Dimensions=%d after first batch", e.Dimensions())
	}
}

func TestOpenAIEmbedder_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"model not found","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL})
	_, err := e.Embed(context.Background(), "text")
	if err == nil {
		t.Fatal("expected provider error")
	}
}

func TestOpenAIEmbedder_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,2]}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL})
	_, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected count-mismatch error")
	}
}

func TestOpenAIEmbedder_DimensionGuard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,2]}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL, Dimensions: 4})
	_, err := e.Embed(context.Background(), "a")
	if err == nil {
		t.Fatal("expected dimension error")
	}
}

func TestOpenAIEmbedder_RetriesServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.5,0.5]}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIConfig{BaseURL: srv.URL})
	vec, err := e.Embed(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 2 || calls != 2 {
		t.Errorf("vec=%v calls=%d", vec, calls)
	}
}
