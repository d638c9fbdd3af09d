package decoding

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/latent-variable/CoT-Decoding-pipeline/internal/conversation"
	"github.com/latent-variable/CoT-Decoding-pipeline/internal/llmclient"
)

// seedRange matches the original sampler: uniform in [0, 1e6). Uniqueness
// across draws is not guaranteed and not needed.
const seedRange = 1_000_000

// GenerateParams describes one fan-out batch.
type GenerateParams struct {
	Model       string
	Prompt      string
	Messages    []conversation.Message
	K           int
	Temperature float64
	MaxTokens   int
	TopK        int
	// Concurrency bounds how many of the K calls run at once. 0 or 1 keeps
	// the reference sequential behavior.
	Concurrency int
}

// Generator issues K independent seeded generation calls and keeps whatever
// succeeds. A failed or empty call is logged and dropped: no retry, no abort.
type Generator struct {
	client llmclient.LLMClient
	logger *slog.Logger
	seedFn func() int
}

// GeneratorOption tweaks a Generator.
type GeneratorOption func(*Generator)

// WithSeedFunc overrides the seed source (tests pin it for determinism).
func WithSeedFunc(fn func() int) GeneratorOption {
	return func(g *Generator) { g.seedFn = fn }
}

func NewGenerator(client llmclient.LLMClient, logger *slog.Logger, opts ...GeneratorOption) *Generator {
	g := &Generator{
		client: client,
		logger: logger,
		seedFn: func() int { return rand.IntN(seedRange) },
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs the batch. The returned slice preserves request-index order
// even when calls run concurrently, holds at most K candidates, and may be
// empty; an empty batch is a valid result the selector has to handle.
func (g *Generator) Generate(ctx context.Context, p GenerateParams) []Candidate {
	if p.K <= 0 {
		return nil
	}

	results := make([]*Candidate, p.K)

	// Seeds are drawn up front, in request order, so the draw stays
	// deterministic under a pinned seed source even when calls overlap.
	seeds := make([]int, p.K)
	for i := range seeds {
		seeds[i] = g.seedFn()
	}

	workers := p.Concurrency
	if workers <= 1 {
		for i := 0; i < p.K; i++ {
			results[i] = g.generateOne(ctx, p, i, seeds[i])
		}
	} else {
		if workers > p.K {
			workers = p.K
		}
		var wg sync.WaitGroup
		sem := make(chan struct{}, workers)
		for i := 0; i < p.K; i++ {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				results[i] = g.generateOne(ctx, p, i, seeds[i])
			}(i)
		}
		wg.Wait()
	}

	out := make([]Candidate, 0, p.K)
	for _, c := range results {
		if c != nil {
			c.Index = len(out)
			out = append(out, *c)
		}
	}
	return out
}

func (g *Generator) generateOne(ctx context.Context, p GenerateParams, i, seed int) *Candidate {
	resp, err := g.client.Generate(ctx, llmclient.GenerateRequest{
		Model:       p.Model,
		Prompt:      p.Prompt,
		Messages:    p.Messages,
		Seed:        seed,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		TopK:        p.TopK,
	})
	if err != nil {
		g.logger.Warn("generation call skipped", "iteration", i+1, "seed", seed, "error", err)
		return nil
	}
	if resp.Text == "" {
		g.logger.Warn("generation call returned empty text", "iteration", i+1, "seed", seed)
		return nil
	}
	return &Candidate{
		Seed:         seed,
		Text:         resp.Text,
		EvalCount:    resp.EvalCount,
		EvalDuration: resp.EvalDuration,
		Confidence:   confidence(resp.EvalCount, resp.EvalDuration),
	}
}
