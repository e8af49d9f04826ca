// Package llmprovider implements the C6 analysis-generation contract: a
// single-shot chat completion call with a fixed system prompt, the item's
// content as the user turn, and explicit temperature/max-token controls
// (spec §4.6). It follows the teacher's internal/infra/summarizer package
// almost exactly — same circuit breaker + retry wrapping, same primary/
// fallback provider split between OpenAI and Claude — generalized from a
// fixed Japanese-summary prompt to an arbitrary system/user prompt pair.
package llmprovider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"catchup-feed/internal/resilience/circuitbreaker"
	"catchup-feed/internal/resilience/retry"
)

// Provider is a chat-completion backend. Complete returns the raw text
// of the model's single reply. Name identifies the provider for
// attribution (spec §4.6: "records which provider produced the result").
type Provider interface {
	Complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error)
	Name() string
}

// Chain tries each Provider in order, falling back to the next on any
// error (including an open circuit breaker). It records which provider
// last succeeded for observability.
type Chain struct {
	providers []Provider

	mu           sync.Mutex
	lastProvider string
}

// NewChain builds a Chain. Order matters: the first entry is the primary.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Complete tries providers in order and returns the first success.
func (c *Chain) Complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	var lastErr error
	for i, p := range c.providers {
		out, err := p.Complete(ctx, system, user, temperature, maxTokens)
		if err == nil {
			if i > 0 {
				slog.WarnContext(ctx, "llm provider chain used fallback", slog.Int("provider_index", i))
			}
			c.mu.Lock()
			c.lastProvider = p.Name()
			c.mu.Unlock()
			return out, nil
		}
		slog.WarnContext(ctx, "llm provider failed, trying next",
			slog.Int("provider_index", i), slog.String("error", err.Error()))
		lastErr = err
	}
	return "", fmt.Errorf("all llm providers failed: %w", lastErr)
}

// LastProviderName returns the name of the provider that produced the most
// recent successful completion, for attribution in item metadata.
func (c *Chain) LastProviderName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastProvider
}

// Name identifies the chain itself as a pseudo-provider, satisfying
// Provider so a Chain can be nested as the semantic rule evaluator's
// collaborator without a separate interface.
func (c *Chain) Name() string { return "chain" }

// OpenAIConfig configures the OpenAI-compatible primary provider.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAI implements Provider against an OpenAI-compatible chat completion
// endpoint, circuit-broken and retried the same way the teacher's
// summarizer.OpenAI does.
type OpenAI struct {
	client  *openai.Client
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
	cfg     OpenAIConfig
}

// NewOpenAI builds an OpenAI provider.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	oaiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaiCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(oaiCfg),
		breaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retry:   retry.AIAPIConfig(),
		cfg:     cfg,
	}
}

// Complete runs a single chat completion through the circuit breaker and
// retry wrapper.
func (o *OpenAI) Complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	timeout := o.cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var result string
	retryErr := retry.WithBackoff(ctx, o.retry, func() error {
		cbResult, err := o.breaker.Execute(func() (interface{}, error) {
			return o.doComplete(ctx, system, user, temperature, maxTokens)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return fmt.Errorf("openai api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("openai completion failed after retries: %w", retryErr)
	}
	return result, nil
}

// Name identifies this provider as "openai" for item metadata attribution.
func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) doComplete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.cfg.Model,
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	duration := time.Since(start)
	if err != nil {
		slog.ErrorContext(ctx, "openai completion failed", slog.Duration("duration", duration), slog.String("error", err.Error()))
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai api returned empty response")
	}
	slog.InfoContext(ctx, "openai completion succeeded", slog.Duration("duration", duration))
	return resp.Choices[0].Message.Content, nil
}

// ClaudeConfig configures the Anthropic hosted-fallback provider.
type ClaudeConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Claude implements Provider against the Anthropic Messages API, used as
// the hosted fallback when the primary OpenAI-compatible endpoint is
// unavailable.
type Claude struct {
	client  anthropic.Client
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
	cfg     ClaudeConfig
}

// NewClaude builds a Claude provider.
func NewClaude(cfg ClaudeConfig) *Claude {
	return &Claude{
		client:  anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		breaker: circuitbreaker.New(circuitbreaker.ClaudeAPIConfig()),
		retry:   retry.AIAPIConfig(),
		cfg:     cfg,
	}
}

// Complete runs a single message call through the circuit breaker and
// retry wrapper.
func (c *Claude) Complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	timeout := c.cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var result string
	retryErr := retry.WithBackoff(ctx, c.retry, func() error {
		cbResult, err := c.breaker.Execute(func() (interface{}, error) {
			return c.doComplete(ctx, system, user, temperature, maxTokens)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return fmt.Errorf("claude api unavailable: circuit breaker open")
			}
			return err
		}
		result = cbResult.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("claude completion failed after retries: %w", retryErr)
	}
	return result, nil
}

// Name identifies this provider as "claude" for item metadata attribution.
func (c *Claude) Name() string { return "claude" }

func (c *Claude) doComplete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	start := time.Now()
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.cfg.Model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	duration := time.Since(start)
	if err != nil {
		slog.ErrorContext(ctx, "claude completion failed", slog.Duration("duration", duration), slog.String("error", err.Error()))
		return "", fmt.Errorf("claude api error: %w", err)
	}
	if len(message.Content) == 0 {
		return "", fmt.Errorf("claude api returned empty response")
	}
	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		return "", fmt.Errorf("claude api returned unexpected response type")
	}
	slog.InfoContext(ctx, "claude completion succeeded", slog.Duration("duration", duration))
	return textBlock.Text, nil
}
