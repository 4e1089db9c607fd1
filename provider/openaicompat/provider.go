// Package openaicompat implements sheaf.EmbeddingProvider for any
// OpenAI-compatible embeddings API.
//
// Works with OpenAI, OpenRouter, Together, Fireworks, Mistral, Ollama,
// vLLM, LM Studio, Azure OpenAI, and any other provider that implements
// the OpenAI embeddings endpoint.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	sheaf "github.com/ogersten/sheaf"
)

// Provider implements sheaf.EmbeddingProvider against the /embeddings
// endpoint of an OpenAI-compatible API.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	client     *http.Client
	name       string
	dimensions int
}

// ProviderOption configures a Provider instance.
type ProviderOption func(*Provider)

// WithName sets the provider name returned by Name() (default "openai").
// Use this to distinguish providers in logs and observability.
func WithName(name string) ProviderOption {
	return func(p *Provider) { p.name = name }
}

// WithHTTPClient sets a custom HTTP client (e.g. for timeouts or proxies).
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *Provider) { p.client = c }
}

// WithDimensions declares the expected embedding dimensionality. It is
// reported by Dimensions() and passed to APIs that support requesting a
// specific output size. Default 1536.
func WithDimensions(d int) ProviderOption {
	return func(p *Provider) { p.dimensions = d }
}

var _ sheaf.EmbeddingProvider = (*Provider)(nil)

// NewProvider creates an OpenAI-compatible embedding provider.
//
// baseURL is the API base (e.g. "https://api.openai.com/v1",
// "http://localhost:11434/v1"). The /embeddings path is appended
// automatically.
func NewProvider(apiKey, model, baseURL string, opts ...ProviderOption) *Provider {
	p := &Provider{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		client:     &http.Client{},
		name:       "openai",
		dimensions: 1536,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name (default "openai", configurable via WithName).
func (p *Provider) Name() string { return p.name }

// Dimensions returns the embedding vector dimensionality.
func (p *Provider) Dimensions() int { return p.dimensions }

// embeddingRequest is the wire format of the embeddings endpoint.
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns one embedding vector per input text, in input order.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(embeddingRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", p.name, err)
	}

	url := p.baseURL + "/embeddings"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", p.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: send request: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &sheaf.ErrHTTP{Status: resp.StatusCode, Body: string(body)}
	}

	var embResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", p.name, err)
	}
	if len(embResp.Data) != len(texts) {
		return nil, fmt.Errorf("%s: got %d embeddings for %d inputs", p.name, len(embResp.Data), len(texts))
	}

	// The API is allowed to return entries out of order.
	sort.Slice(embResp.Data, func(i, j int) bool {
		return embResp.Data[i].Index < embResp.Data[j].Index
	})

	vectors := make([][]float32, len(embResp.Data))
	for i, d := range embResp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
