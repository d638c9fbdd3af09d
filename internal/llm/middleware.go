// Package llm carries the cross-cutting plumbing around an endpoint client:
// middleware decoration, outbound rate limiting, usage accounting and the
// remote model registry.
package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/latent-variable/CoT-Decoding-pipeline/internal/llmclient"
)

// Middleware decorates an LLMClient to inject cross-cutting concerns
// (rate limiting, logging, usage accounting, etc.).
type Middleware func(llmclient.LLMClient) llmclient.LLMClient

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner llmclient.LLMClient, mws ...Middleware) llmclient.LLMClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// RateLimit throttles outbound calls to rps with the given burst.
// If rps <= 0, the middleware passes calls through untouched.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		rl := newRPSLimiter(rps, burst) // nil when disabled
		return &rateLimited{next: next, rl: rl}
	}
}

type rateLimited struct {
	next llmclient.LLMClient
	rl   *rpsLimiter
}

func (c *rateLimited) Name() string               { return c.next.Name() }
func (c *rateLimited) CountTokens(text string) int { return c.next.CountTokens(text) }
func (c *rateLimited) TokenCapacity() int          { return c.next.TokenCapacity() }
func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}

func (c *rateLimited) Generate(ctx context.Context, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return llmclient.GenerateResponse{}, err
	}
	return c.next.Generate(ctx, req)
}

// WithLogging logs one line per outbound call: model, seed, duration and the
// reported eval metrics, tagged with an id drawn once per wrap so calls made
// through one wrapped client group together.
func WithLogging(logger *slog.Logger) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		if logger == nil {
			logger = slog.Default()
		}
		return &loggingClient{next: next, logger: logger, invocation: uuid.NewString()}
	}
}

type loggingClient struct {
	next       llmclient.LLMClient
	logger     *slog.Logger
	invocation string
}

func (c *loggingClient) Name() string               { return c.next.Name() }
func (c *loggingClient) Close() error               { return c.next.Close() }
func (c *loggingClient) CountTokens(text string) int { return c.next.CountTokens(text) }
func (c *loggingClient) TokenCapacity() int          { return c.next.TokenCapacity() }

func (c *loggingClient) Generate(ctx context.Context, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
	start := time.Now()
	resp, err := c.next.Generate(ctx, req)
	attrs := []any{
		"invocation", c.invocation,
		"client", c.next.Name(),
		"model", req.Model,
		"seed", req.Seed,
		"duration", time.Since(start),
	}
	if err != nil {
		c.logger.Warn("llm call failed", append(attrs, "error", err)...)
		return resp, err
	}
	c.logger.Debug("llm call",
		append(attrs, "eval_count", resp.EvalCount, "eval_duration", resp.EvalDuration)...)
	return resp, nil
}
