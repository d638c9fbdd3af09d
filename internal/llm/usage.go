package llm

import (
	"context"
	"sync"

	"github.com/latent-variable/CoT-Decoding-pipeline/internal/llmclient"
)

// UsageTally tracks per-model call statistics in memory. The pipeline writes
// no files, so unlike a persistent ledger the tally lives only as long as the
// process.
type UsageTally struct {
	mu     sync.Mutex
	models map[string]UsageStat
}

// UsageStat is the per-model counter set.
type UsageStat struct {
	Requests int64
	Tokens   int64
	Errors   int64
}

func NewUsageTally() *UsageTally {
	return &UsageTally{models: map[string]UsageStat{}}
}

func (u *UsageTally) record(model string, tokens int64, failed bool) {
	if u == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	s := u.models[model]
	s.Requests++
	s.Tokens += tokens
	if failed {
		s.Errors++
	}
	u.models[model] = s
}

// Snapshot returns a copy of the per-model counters.
func (u *UsageTally) Snapshot() map[string]UsageStat {
	if u == nil {
		return nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]UsageStat, len(u.models))
	for k, v := range u.models {
		out[k] = v
	}
	return out
}

// WithUsageTally returns a middleware that records each call into tally.
func WithUsageTally(tally *UsageTally) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &usageClient{next: next, tally: tally}
	}
}

type usageClient struct {
	next  llmclient.LLMClient
	tally *UsageTally
}

func (u *usageClient) Name() string                { return u.next.Name() }
func (u *usageClient) Close() error                { return u.next.Close() }
func (u *usageClient) CountTokens(text string) int { return u.next.CountTokens(text) }
func (u *usageClient) TokenCapacity() int          { return u.next.TokenCapacity() }

func (u *usageClient) Generate(ctx context.Context, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
	resp, err := u.next.Generate(ctx, req)
	tokens := resp.EvalCount
	if tokens == 0 {
		// Fall back to a local estimate of the prompt side.
		payload := req.Prompt
		for _, m := range req.Messages {
			payload += "\n" + m.Content
		}
		tokens = int64(u.next.CountTokens(payload))
	}
	u.tally.record(req.Model, tokens, err != nil)
	return resp, err
}
