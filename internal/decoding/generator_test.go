package decoding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/latent-variable/CoT-Decoding-pipeline/internal/llmclient"
)

// stubClient scripts one response (or error) per call, in call order, and
// records every request it sees.
type stubClient struct {
	mu       sync.Mutex
	calls    int
	requests []llmclient.GenerateRequest
	respond  func(call int, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error)
}

func (s *stubClient) Name() string                { return "stub" }
func (s *stubClient) Close() error                { return nil }
func (s *stubClient) CountTokens(text string) int { return len(text) / 4 }
func (s *stubClient) TokenCapacity() int          { return 4096 }

func (s *stubClient) Generate(ctx context.Context, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
	_ = ctx
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	return s.respond(call, req)
}

var _ llmclient.LLMClient = (*stubClient)(nil)

// countingSeeds returns a seed source handing out 100, 200, 300, ...
func countingSeeds() func() int {
	n := 0
	return func() int {
		n++
		return n * 100
	}
}

func TestGenerate_AllSucceed(t *testing.T) {
	stub := &stubClient{respond: func(call int, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
		return llmclient.GenerateResponse{
			Text:         fmt.Sprintf("answer %d", call),
			EvalCount:    int64(call * 10),
			EvalDuration: 1000,
		}, nil
	}}
	g := NewGenerator(stub, nil, WithSeedFunc(countingSeeds()))

	cands := g.Generate(context.Background(), GenerateParams{Model: "m", Prompt: "Q: x\nA:", K: 5})
	if len(cands) != 5 {
		t.Fatalf("expected 5 candidates, got %d", len(cands))
	}

	// Each outbound request carried its own freshly drawn seed.
	seen := map[int]bool{}
	for _, req := range stub.requests {
		if seen[req.Seed] {
			t.Fatalf("seed %d reused across requests", req.Seed)
		}
		seen[req.Seed] = true
	}
	for i, c := range cands {
		if c.Index != i {
			t.Fatalf("candidate %d has index %d", i, c.Index)
		}
		if c.Confidence == 0 {
			t.Fatalf("candidate %d has no confidence", i)
		}
	}
}

func TestGenerate_SkipsFailures(t *testing.T) {
	stub := &stubClient{respond: func(call int, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
		if call == 2 || call == 4 {
			return llmclient.GenerateResponse{}, errors.New("boom")
		}
		return llmclient.GenerateResponse{Text: fmt.Sprintf("answer %d", call), EvalCount: 1, EvalDuration: 1}, nil
	}}
	g := NewGenerator(stub, nil)

	cands := g.Generate(context.Background(), GenerateParams{Model: "m", K: 5})
	if len(cands) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(cands))
	}
	for i, want := range []string{"answer 1", "answer 3", "answer 5"} {
		if cands[i].Text != want {
			t.Fatalf("candidate %d: got %q want %q", i, cands[i].Text, want)
		}
	}
	if stub.calls != 5 {
		t.Fatalf("failed calls must not be retried: %d calls", stub.calls)
	}
}

func TestGenerate_EmptyTextSkipped(t *testing.T) {
	stub := &stubClient{respond: func(call int, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
		return llmclient.GenerateResponse{Text: ""}, nil
	}}
	g := NewGenerator(stub, nil)

	if cands := g.Generate(context.Background(), GenerateParams{Model: "m", K: 3}); len(cands) != 0 {
		t.Fatalf("expected empty batch, got %d candidates", len(cands))
	}
}

func TestGenerate_ConcurrentPreservesOrder(t *testing.T) {
	stub := &stubClient{respond: func(call int, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
		// Text derives from the request seed, which is drawn in request
		// order, so order can be checked regardless of completion order.
		return llmclient.GenerateResponse{Text: fmt.Sprintf("seed %d", req.Seed), EvalCount: 1, EvalDuration: 1}, nil
	}}
	g := NewGenerator(stub, nil, WithSeedFunc(countingSeeds()))

	cands := g.Generate(context.Background(), GenerateParams{Model: "m", K: 8, Concurrency: 4})
	if len(cands) != 8 {
		t.Fatalf("expected 8 candidates, got %d", len(cands))
	}
	for i, c := range cands {
		if want := fmt.Sprintf("seed %d", (i+1)*100); c.Text != want {
			t.Fatalf("candidate %d out of order: got %q want %q", i, c.Text, want)
		}
	}
}

func TestGenerate_ZeroK(t *testing.T) {
	stub := &stubClient{respond: func(int, llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
		t.Fatal("endpoint must not be called for k=0")
		return llmclient.GenerateResponse{}, nil
	}}
	if cands := NewGenerator(stub, nil).Generate(context.Background(), GenerateParams{K: 0}); cands != nil {
		t.Fatalf("expected nil, got %v", cands)
	}
}

func TestConfidence_ZeroDurationGuard(t *testing.T) {
	if got := confidence(40, 0); got != 40 {
		t.Fatalf("zero duration must count as 1: got %g", got)
	}
	if got := confidence(40, 8); got != 5 {
		t.Fatalf("confidence: got %g want 5", got)
	}
}
