// Package llmclient abstracts the inference endpoint behind a small client
// interface so the decoding pipeline never cares which backend it talks to.
package llmclient

import (
	"context"
	"errors"

	"github.com/latent-variable/CoT-Decoding-pipeline/internal/conversation"
)

var (
	// ErrEmptyResponse means the endpoint answered but carried no text.
	ErrEmptyResponse = errors.New("llmclient: empty response from model")
)

// GenerateRequest is one sampled generation call. Prompt and Messages are
// alternatives: clients in prompt mode read Prompt, chat-shaped clients read
// Messages.
type GenerateRequest struct {
	Model       string
	Prompt      string
	Messages    []conversation.Message
	Seed        int
	Temperature float64
	MaxTokens   int
	TopK        int
}

// GenerateResponse carries the text plus the generation metrics used by the
// confidence heuristic. EvalDuration is in nanoseconds, zero when the backend
// does not report one.
type GenerateResponse struct {
	Text         string
	Model        string
	EvalCount    int64
	EvalDuration int64
}

// LLMClient is the contract every backend implements.
type LLMClient interface {
	Name() string
	Close() error
	CountTokens(text string) int
	TokenCapacity() int
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// PermanentError indicates an error that will not resolve with retries.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

func NewPermanentError(err error) error {
	return &PermanentError{Err: err}
}
