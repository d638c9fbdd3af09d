package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/latent-variable/CoT-Decoding-pipeline/internal/llmclient"
)

type scriptedLLM struct {
	name  string
	calls int
	err   error
}

func (s *scriptedLLM) Name() string                { return s.name }
func (s *scriptedLLM) Close() error                { return nil }
func (s *scriptedLLM) CountTokens(text string) int { return len(text) }
func (s *scriptedLLM) TokenCapacity() int          { return 1024 }
func (s *scriptedLLM) Generate(ctx context.Context, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
	_ = ctx
	s.calls++
	if s.err != nil {
		return llmclient.GenerateResponse{}, s.err
	}
	return llmclient.GenerateResponse{Text: "ok", Model: req.Model, EvalCount: 7, EvalDuration: 1}, nil
}

var _ llmclient.LLMClient = (*scriptedLLM)(nil)

func TestWrap_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next llmclient.LLMClient) llmclient.LLMClient {
			return &tagged{next: next, name: name, order: &order}
		}
	}

	inner := &scriptedLLM{name: "inner"}
	cli := Wrap(inner, tag("A"), tag("B"))
	if _, err := cli.Generate(context.Background(), llmclient.GenerateRequest{Model: "m"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(order) != 2 || order[0] != "A" || order[1] != "B" {
		t.Fatalf("unexpected middleware order: %v", order)
	}
}

type tagged struct {
	next  llmclient.LLMClient
	name  string
	order *[]string
}

func (c *tagged) Name() string                { return c.next.Name() }
func (c *tagged) Close() error                { return c.next.Close() }
func (c *tagged) CountTokens(text string) int { return c.next.CountTokens(text) }
func (c *tagged) TokenCapacity() int          { return c.next.TokenCapacity() }
func (c *tagged) Generate(ctx context.Context, req llmclient.GenerateRequest) (llmclient.GenerateResponse, error) {
	*c.order = append(*c.order, c.name)
	return c.next.Generate(ctx, req)
}

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	inner := &scriptedLLM{name: "inner"}
	cli := Wrap(inner, RateLimit(0, 0))
	for i := 0; i < 3; i++ {
		if _, err := cli.Generate(context.Background(), llmclient.GenerateRequest{Model: "m"}); err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", inner.calls)
	}
}

func TestRateLimit_CanceledContext(t *testing.T) {
	inner := &scriptedLLM{name: "inner"}
	// 1 rps with burst 1: the second call must wait, and a canceled context
	// aborts the wait.
	cli := Wrap(inner, RateLimit(1, 1))
	if _, err := cli.Generate(context.Background(), llmclient.GenerateRequest{Model: "m"}); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := cli.Generate(ctx, llmclient.GenerateRequest{Model: "m"}); err == nil {
		t.Fatal("expected context error from throttled call")
	}
	if inner.calls != 1 {
		t.Fatalf("throttled call must not reach the client: %d calls", inner.calls)
	}
}

func TestUsageTally(t *testing.T) {
	tally := NewUsageTally()
	ok := &scriptedLLM{name: "ok"}
	cli := Wrap(ok, WithUsageTally(tally))

	if _, err := cli.Generate(context.Background(), llmclient.GenerateRequest{Model: "m1"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := cli.Generate(context.Background(), llmclient.GenerateRequest{Model: "m1"}); err != nil {
		t.Fatalf("generate: %v", err)
	}

	failing := &scriptedLLM{name: "bad", err: errors.New("down")}
	cli = Wrap(failing, WithUsageTally(tally))
	if _, err := cli.Generate(context.Background(), llmclient.GenerateRequest{Model: "m2"}); err == nil {
		t.Fatal("expected error to pass through the tally")
	}

	snap := tally.Snapshot()
	if snap["m1"].Requests != 2 || snap["m1"].Errors != 0 {
		t.Fatalf("unexpected m1 stats: %+v", snap["m1"])
	}
	if snap["m1"].Tokens != 14 {
		t.Fatalf("expected eval counts to accumulate, got %d", snap["m1"].Tokens)
	}
	if snap["m2"].Requests != 1 || snap["m2"].Errors != 1 {
		t.Fatalf("unexpected m2 stats: %+v", snap["m2"])
	}
}
