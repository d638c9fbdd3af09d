package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ModelLister is implemented by clients whose endpoint can enumerate the
// models it serves (Ollama /api/tags).
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Registry answers "does the endpoint know this model" without hammering the
// tags endpoint on every pipe call. Tag lists are cached per endpoint with a
// short TTL.
type Registry struct {
	lister ModelLister
	key    string
	cache  *expirable.LRU[string, []string]
}

// NewRegistry creates a registry over the given lister. key identifies the
// endpoint in the cache (typically its base URL).
func NewRegistry(lister ModelLister, key string, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Registry{
		lister: lister,
		key:    key,
		cache:  expirable.NewLRU[string, []string](16, nil, ttl),
	}
}

// List returns the model tags the endpoint advertises, cached.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	if tags, ok := r.cache.Get(r.key); ok {
		return tags, nil
	}
	tags, err := r.lister.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	r.cache.Add(r.key, tags)
	return tags, nil
}

// Has reports whether the endpoint advertises the given model tag.
func (r *Registry) Has(ctx context.Context, model string) (bool, error) {
	tags, err := r.List(ctx)
	if err != nil {
		return false, err
	}
	for _, t := range tags {
		if t == model {
			return true, nil
		}
	}
	return false, nil
}
