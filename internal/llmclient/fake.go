package llmclient

import (
	"context"
	"fmt"
)

// FakeClient returns deterministic canned responses for offline use and tests.
// Each call reports an eval count derived from the seed so confidence-based
// selection stays exercised without a live endpoint.
type FakeClient struct {
	tokenCap int
}

func NewFakeClient(cap int) *FakeClient {
	if cap <= 0 {
		cap = 4096
	}
	return &FakeClient{tokenCap: cap}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }
func (f *FakeClient) CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return len(text) / 4
}
func (f *FakeClient) TokenCapacity() int { return f.tokenCap }

func (f *FakeClient) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	_ = ctx
	return GenerateResponse{
		Text:         fmt.Sprintf("fake response (seed %d)", req.Seed),
		Model:        req.Model,
		EvalCount:    int64(10 + req.Seed%100),
		EvalDuration: 1_000_000,
	}, nil
}

var _ LLMClient = (*FakeClient)(nil)
