// Package embedding implements the two embedding contracts the pipeline
// needs (spec §6): a retrieval-purpose vector for semantic search and the
// semantic rule kind, and a paraphrase-purpose vector for C4 Stage C dedupe.
// The two purposes must never be produced or searched interchangeably
// (entity.EmbeddingKind enforces this at the type level downstream).
//
// This replaces the teacher's generated-gRPC AIProvider client: no gRPC
// embedding service exists in the retrieved pack for this domain, so the
// contract is implemented as a plain HTTP client against an OpenAI-
// compatible embeddings endpoint, wrapped in the same circuit-breaker and
// retry machinery the teacher wraps its AI calls in.
package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"catchup-feed/internal/resilience/circuitbreaker"
	"catchup-feed/internal/resilience/retry"
)

// Provider produces the two purpose-specific embedding vectors the
// pipeline needs. Implementations must return vectors of the configured
// dimension (reference 768 for both purposes, spec §4.4/§4.5).
type Provider interface {
	EmbedRetrieval(ctx context.Context, text string) ([]float32, error)
	EmbedParaphrase(ctx context.Context, text string) ([]float32, error)
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL          string
	APIKey           string
	RetrievalModel   string
	ParaphraseModel  string
	Dimension        int
}

// Client is an HTTP-based Provider backed by an OpenAI-compatible
// embeddings endpoint (self-hosted or hosted), circuit-broken and retried
// exactly as the teacher wraps its summarizer API calls.
type Client struct {
	cli     *openai.Client
	cfg     Config
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
}

// NewClient builds a Client. baseURL may point at a self-hosted
// OpenAI-compatible embeddings server; apiKey may be empty for such
// deployments.
func NewClient(cfg Config) *Client {
	oaiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		cli:     openai.NewClientWithConfig(oaiCfg),
		cfg:     cfg,
		breaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retry:   retry.AIAPIConfig(),
	}
}

func (c *Client) embed(ctx context.Context, model, text string) ([]float32, error) {
	var vector []float32
	err := retry.WithBackoff(ctx, c.retry, func() error {
		result, breakerErr := c.breaker.Execute(func() (interface{}, error) {
			resp, err := c.cli.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
				Input: []string{text},
				Model: openai.EmbeddingModel(model),
			})
			if err != nil {
				return nil, err
			}
			if len(resp.Data) == 0 {
				return nil, fmt.Errorf("embedding response had no data")
			}
			return resp.Data[0].Embedding, nil
		})
		if breakerErr != nil {
			return breakerErr
		}
		vector = result.([]float32)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embed via %s: %w", model, err)
	}
	return vector, nil
}

// EmbedRetrieval produces a vector for the semantic retrieval index.
func (c *Client) EmbedRetrieval(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, c.cfg.RetrievalModel, text)
}

// EmbedParaphrase produces a vector for the paraphrase dedupe index.
func (c *Client) EmbedParaphrase(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, c.cfg.ParaphraseModel, text)
}
