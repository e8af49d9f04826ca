// Package classifier implements the C5 classifier worker's model contract:
// a trained multi-output model that, given a retrieval embedding, returns
// a relevance call, per-group confidences, and a priority suggestion (spec
// §4.5). As with internal/infra/embedding, no generated-gRPC classifier
// client exists anywhere in the retrieved pack for this domain, so the
// contract is implemented as a plain HTTP client against a self-hosted
// classification endpoint, wrapped in the same circuit-breaker and retry
// machinery the teacher wraps every other external AI call in.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/resilience/circuitbreaker"
	"catchup-feed/internal/resilience/retry"
)

// Output is the classifier's verdict for a single item's retrieval vector.
type Output struct {
	Relevant         bool
	GroupConfidences map[string]float64
	SuggestedGroups  []string
	Priority         entity.Priority
	Confidence       float64
}

// Provider classifies a retrieval embedding. Implementations must be safe
// for concurrent use by the single C5 worker goroutine and any backlog
// poller sharing it.
type Provider interface {
	Classify(ctx context.Context, vector []float32) (Output, error)
}

// Config configures the HTTP classification client.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	// ConfidenceThreshold is the cutoff above which a relevant/irrelevant
	// call is treated as "high-confidence" for the retry-priority table in
	// spec §4.5. Reference 0.7.
	ConfidenceThreshold float64
}

// DefaultConfig returns the reference confidence threshold named in spec
// §4.5.
func DefaultConfig() Config {
	return Config{Timeout: 10 * time.Second, ConfidenceThreshold: 0.7}
}

// Client is an HTTP-based Provider backed by a self-hosted classification
// endpoint, circuit-broken and retried exactly as embedding.Client and
// llmprovider.OpenAI are.
type Client struct {
	http    *http.Client
	cfg     Config
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
}

// NewClient builds a Client against the given endpoint.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		cfg:     cfg,
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig("classifier-model")),
		retry:   retry.AIAPIConfig(),
	}
}

type classifyRequest struct {
	Vector []float32 `json:"vector"`
}

type classifyResponse struct {
	Relevant         bool               `json:"relevant"`
	GroupConfidences map[string]float64 `json:"group_confidences"`
	Priority         string             `json:"priority"`
	Confidence       float64            `json:"confidence"`
}

// Classify posts the vector to the configured endpoint and returns the
// model's verdict, deriving SuggestedGroups from any group whose confidence
// clears the configured threshold and is part of the closed vocabulary.
func (c *Client) Classify(ctx context.Context, vector []float32) (Output, error) {
	var out Output
	err := retry.WithBackoff(ctx, c.retry, func() error {
		result, breakerErr := c.breaker.Execute(func() (interface{}, error) {
			return c.doClassify(ctx, vector)
		})
		if breakerErr != nil {
			return breakerErr
		}
		out = result.(Output)
		return nil
	})
	if err != nil {
		return Output{}, fmt.Errorf("classify: %w", err)
	}
	return out, nil
}

func (c *Client) doClassify(ctx context.Context, vector []float32) (Output, error) {
	body, err := json.Marshal(classifyRequest{Vector: vector})
	if err != nil {
		return Output{}, fmt.Errorf("marshal classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Output{}, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Output{}, fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Output{}, &retry.HTTPError{StatusCode: resp.StatusCode, Message: "classifier endpoint error"}
	}

	var cr classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return Output{}, fmt.Errorf("decode classify response: %w", err)
	}

	var groups []string
	for tag, confidence := range cr.GroupConfidences {
		if confidence >= c.cfg.ConfidenceThreshold && entity.IsKnownGroup(tag) {
			groups = append(groups, tag)
		}
	}

	return Output{
		Relevant:         cr.Relevant,
		GroupConfidences: cr.GroupConfidences,
		SuggestedGroups:  groups,
		Priority:         entity.Priority(cr.Priority),
		Confidence:       cr.Confidence,
	}, nil
}
