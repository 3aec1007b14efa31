package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"
)

// Global mutex to serialize Ollama embedding requests.
// Ollama's llama runner can crash with concurrent embedding requests.
var ollamaEmbedMu sync.Mutex

// OllamaEmbedder implements Embedder using Ollama's embeddings API.
type OllamaEmbedder struct {
	client        *http.Client
	baseURL       string
	model         string
	dimension     int
	queryPrefix   string
	passagePrefix string
}

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	// BaseURL for the Ollama API (default: http://localhost:11434).
	BaseURL string `yaml:"base_url,omitempty"`

	// Model name (default: nomic-embed-text).
	Model string `yaml:"model,omitempty"`

	// Dimension of embeddings (default derived from the model).
	Dimension int `yaml:"dimension,omitempty"`

	// Timeout for API requests (default: 30s).
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// QueryPrefix is prepended to query text (default: "query: ").
	QueryPrefix string `yaml:"query_prefix,omitempty"`

	// PassagePrefix is prepended to document text (default: "passage: ").
	PassagePrefix string `yaml:"passage_prefix,omitempty"`
}

// ollamaRequest is the request payload for the Ollama embeddings API.
// Input is a string or an array of strings for batch processing.
type ollamaRequest struct {
	Model string      `json:"model"`
	Input interface{} `json:"input"`
}

// ollamaResponse is the response from the Ollama embeddings API.
type ollamaResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaEmbedder creates a new Ollama embedder.
func NewOllamaEmbedder(cfg OllamaConfig) (*OllamaEmbedder, error) {
	model := cfg.Model
	if model == "" {
		model = "nomic-embed-text"
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	dimension := cfg.Dimension
	if dimension == 0 {
		// Default dimensions for common models
		switch model {
		case "nomic-embed-text", "nomic-embed-text-v2", "multilingual-e5-base":
			dimension = 768
		case "all-minilm:l6-v2", "bge-small-en-v1.5":
			dimension = 384
		case "bge-large-en-v1.5":
			dimension = 1024
		default:
			dimension = 768
		}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	queryPrefix := cfg.QueryPrefix
	if queryPrefix == "" {
		queryPrefix = "query: "
	}
	passagePrefix := cfg.PassagePrefix
	if passagePrefix == "" {
		passagePrefix = "passage: "
	}

	return &OllamaEmbedder{
		client:        &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		model:         model,
		dimension:     dimension,
		queryPrefix:   queryPrefix,
		passagePrefix: passagePrefix,
	}, nil
}

// EmbedQuery encodes a search query with the query instruction prefix.
func (e *OllamaEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.embed(ctx, []string{e.queryPrefix + text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("received empty embedding from Ollama")
	}
	return embeddings[0], nil
}

// EmbedPassages encodes documents with the passage instruction prefix.
func (e *OllamaEmbedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	prefixed := make([]string, len(texts))
	for i, text := range texts {
		prefixed[i] = e.passagePrefix + text
	}
	return e.embed(ctx, prefixed)
}

// embed calls the Ollama embeddings API and L2-normalizes the result.
func (e *OllamaEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	// Serialize all Ollama embedding requests to prevent crashes
	ollamaEmbedMu.Lock()
	defer ollamaEmbedMu.Unlock()

	slog.Debug("Ollama embedding request", "model", e.model, "count", len(texts))

	var input interface{} = texts
	if len(texts) == 1 {
		input = texts[0]
	}

	req := ollamaRequest{
		Model: e.model,
		Input: input,
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/api/embed", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		slog.Error("Ollama embedding failed", "error", err, "model", e.model)
		return nil, fmt.Errorf("failed to send request to Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Ollama API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(response.Embeddings) == 0 {
		return nil, fmt.Errorf("received empty embeddings from Ollama")
	}

	for i := range response.Embeddings {
		normalize(response.Embeddings[i])
	}

	return response.Embeddings, nil
}

// normalize scales a vector to unit length in place.
// Some models already return unit vectors; renormalizing is a no-op then.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
}

// Dimension returns the embedding vector dimension.
func (e *OllamaEmbedder) Dimension() int {
	return e.dimension
}

// Model returns the model name being used.
func (e *OllamaEmbedder) Model() string {
	return e.model
}

// Close releases any resources.
func (e *OllamaEmbedder) Close() error {
	return nil
}

// Ensure OllamaEmbedder implements Embedder.
var _ Embedder = (*OllamaEmbedder)(nil)
