package service

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/minkyo/topiko/internal/config"
	"github.com/minkyo/topiko/internal/domain"
)

const (
	jinaEndpoint = "https://api.jina.ai/v1/embeddings"
)

// EmbeddingClient wraps the external embedding service. Transient failures
// (timeouts, 5xx, 429) are retried with exponential backoff inside the
// client; anything malformed is surfaced as domain.ErrInvalidResponse and a
// vector is never fabricated on failure.
type EmbeddingClient struct {
	client     *resty.Client
	endpoint   string
	model      string
	dimensions int
}

// NewEmbeddingClient creates a new embedding client from configuration.
func NewEmbeddingClient(cfg *config.EmbeddingConfig) *EmbeddingClient {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(cfg.Timeout)

	// Retry 429 and 5xx with exponential backoff. resty honors Retry-After
	// on 429, which covers the mandatory inter-call delay for rate limits.
	client.SetRetryCount(cfg.MaxRetries)
	client.SetRetryWaitTime(cfg.RetryWait)
	client.SetRetryMaxWaitTime(cfg.RetryMaxWait)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() == 429 || r.StatusCode() >= 500
	})

	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = jinaEndpoint
	}

	return &EmbeddingClient{
		client:     client,
		endpoint:   endpoint,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// GetModel returns the model name being used
func (c *EmbeddingClient) GetModel() string {
	return c.model
}

// Dimensions returns the configured output dimensionality
func (c *EmbeddingClient) Dimensions() int {
	return c.dimensions
}

// Embedding API request/response structures
type embedInput struct {
	Text  string `json:"text"`
	Title string `json:"title,omitempty"`
}

type embedRequest struct {
	Model         string       `json:"model"`
	Task          string       `json:"task,omitempty"`
	Dimensions    int          `json:"dimensions,omitempty"`
	Input         []embedInput `json:"input"`
	EmbeddingType string       `json:"embedding_type,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Detail string `json:"detail,omitempty"`
}

// Embed generates an embedding for a text with an optional title. The title
// biases retrieval-style embeddings; when empty it defaults to the text
// itself.
//
// Returns domain.ErrServiceUnavailable or domain.ErrRateLimited once
// retries are exhausted, and domain.ErrInvalidResponse for anything the
// service returned that cannot be trusted as a vector.
func (c *EmbeddingClient) Embed(ctx context.Context, text, title string) (domain.Vector, error) {
	if title == "" {
		title = text
	}

	req := embedRequest{
		Model:         c.model,
		Task:          "retrieval.passage",
		Dimensions:    c.dimensions,
		Input:         []embedInput{{Text: text, Title: title}},
		EmbeddingType: "float",
	}

	var resp embedResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(c.endpoint)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}

	switch code := httpResp.StatusCode(); {
	case code == 200:
		// fall through to body validation
	case code == 429:
		return nil, fmt.Errorf("%w: status %d", domain.ErrRateLimited, code)
	case code >= 500:
		return nil, fmt.Errorf("%w: status %d", domain.ErrServiceUnavailable, code)
	default:
		if resp.Detail != "" {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidResponse, resp.Detail)
		}
		return nil, fmt.Errorf("%w: status %d", domain.ErrInvalidResponse, code)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", domain.ErrInvalidResponse)
	}

	vector := resp.Data[0].Embedding
	if len(vector) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d dimensions, expected %d",
			domain.ErrInvalidResponse, len(vector), c.dimensions)
	}

	return domain.Vector(vector), nil
}
