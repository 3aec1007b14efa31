package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// OllamaConfig configures an Ollama generation client.
// The same client talks to a local daemon and to Ollama Cloud; the
// cloud variant just adds a bearer token.
type OllamaConfig struct {
	// BaseURL for the Ollama API (default: http://localhost:11434).
	BaseURL string `yaml:"base_url,omitempty"`

	// Model name (default: gemma2:2b).
	Model string `yaml:"model,omitempty"`

	// APIKey is sent as a bearer token when set (Ollama Cloud).
	APIKey string `yaml:"api_key,omitempty"`

	// Timeout for API requests (default: 60s).
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// SetDefaults applies default values.
func (c *OllamaConfig) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:11434"
	}
	if c.Model == "" {
		c.Model = "gemma2:2b"
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
}

// Validate checks the configuration.
func (c *OllamaConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

// OllamaGenerator implements Generator against the Ollama HTTP API.
type OllamaGenerator struct {
	client  *http.Client
	baseURL string
	model   string
	apiKey  string
}

// NewOllamaGenerator creates a new Ollama generation client.
func NewOllamaGenerator(cfg OllamaConfig) (*OllamaGenerator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &OllamaGenerator{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
	}, nil
}

// generateRequest is the request payload for /api/generate.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// generateResponse is the non-streaming response from /api/generate.
type generateResponse struct {
	Response  string `json:"response"`
	Done      bool   `json:"done"`
	EvalCount int    `json:"eval_count"`
}

// Generate runs a single non-streaming completion.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string, opts Options) (*Result, error) {
	payload := generateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: opts.Temperature,
			TopP:        opts.TopP,
			NumPredict:  opts.MaxTokens,
		},
	}

	start := time.Now()
	resp, err := g.post(ctx, "/api/generate", payload)
	if err != nil {
		return nil, fmt.Errorf("failed to call Ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	duration := time.Since(start)
	slog.Debug("Ollama generation complete",
		"model", g.model,
		"eval_count", response.EvalCount,
		"duration", duration)

	return &Result{
		Text:      response.Response,
		EvalCount: response.EvalCount,
		Duration:  duration,
	}, nil
}

// tagsResponse is the response from /api/tags.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the model names the backend serves.
func (g *OllamaGenerator) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", g.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	g.setHeaders(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list Ollama models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	names := make([]string, 0, len(response.Models))
	for _, m := range response.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// post sends a JSON payload to the given API path.
func (g *OllamaGenerator) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	g.setHeaders(req)
	return g.client.Do(req)
}

func (g *OllamaGenerator) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
}

// Model returns the model this generator targets.
func (g *OllamaGenerator) Model() string {
	return g.model
}

// Close releases any resources. Ollama doesn't require explicit closing.
func (g *OllamaGenerator) Close() error {
	return nil
}

// Ensure OllamaGenerator implements Generator.
var _ Generator = (*OllamaGenerator)(nil)
