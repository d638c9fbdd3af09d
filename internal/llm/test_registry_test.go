package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeLister struct {
	calls int
	tags  []string
	err   error
}

func (f *fakeLister) ListModels(ctx context.Context) ([]string, error) {
	_ = ctx
	f.calls++
	return f.tags, f.err
}

func TestRegistry_CachesTagList(t *testing.T) {
	lister := &fakeLister{tags: []string{"llama3:8b", "phi3"}}
	reg := NewRegistry(lister, "http://localhost:11434", time.Minute)

	for i := 0; i < 3; i++ {
		tags, err := reg.List(context.Background())
		if err != nil {
			t.Fatalf("list %d: %v", i, err)
		}
		if len(tags) != 2 {
			t.Fatalf("unexpected tags %v", tags)
		}
	}
	if lister.calls != 1 {
		t.Fatalf("expected one upstream fetch, got %d", lister.calls)
	}
}

func TestRegistry_Has(t *testing.T) {
	reg := NewRegistry(&fakeLister{tags: []string{"llama3:8b"}}, "k", time.Minute)

	ok, err := reg.Has(context.Background(), "llama3:8b")
	if err != nil || !ok {
		t.Fatalf("expected advertised model: ok=%v err=%v", ok, err)
	}
	ok, err = reg.Has(context.Background(), "missing")
	if err != nil || ok {
		t.Fatalf("expected missing model: ok=%v err=%v", ok, err)
	}
}

func TestRegistry_ErrorNotCached(t *testing.T) {
	lister := &fakeLister{err: errors.New("down")}
	reg := NewRegistry(lister, "k", time.Minute)

	if _, err := reg.List(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := reg.List(context.Background()); err == nil {
		t.Fatal("expected error on retry")
	}
	if lister.calls != 2 {
		t.Fatalf("errors must not be cached: %d calls", lister.calls)
	}
}
