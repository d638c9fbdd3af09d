package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/latent-variable/CoT-Decoding-pipeline/internal/conversation"
)

// OllamaMode selects which payload shape the client speaks.
type OllamaMode string

const (
	// ModeGenerate posts a flattened prompt to /api/generate.
	ModeGenerate OllamaMode = "generate"
	// ModeChat posts role/content messages to /api/chat.
	ModeChat OllamaMode = "chat"

	defaultOllamaURL = "http://localhost:11434"
	defaultTimeout   = 60 * time.Second
)

// OllamaClient calls a local Ollama server over plain HTTP.
// See: https://github.com/ollama/ollama/blob/main/docs/api.md
type OllamaClient struct {
	http     *http.Client
	baseURL  string
	mode     OllamaMode
	tokenCap int
}

// NewOllamaClient creates a client for the given base URL. Full endpoint URLs
// such as http://host:11434/api/generate (the shape the original env var
// carried) are accepted and trimmed back to the base.
func NewOllamaClient(baseURL string, mode OllamaMode, timeout time.Duration) *OllamaClient {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/api/generate")
	baseURL = strings.TrimSuffix(baseURL, "/api/chat")
	if mode == "" {
		mode = ModeGenerate
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OllamaClient{
		http:     &http.Client{Timeout: timeout},
		baseURL:  baseURL,
		mode:     mode,
		tokenCap: 8192,
	}
}

func (o *OllamaClient) Name() string { return "Ollama:" + string(o.mode) }
func (o *OllamaClient) Close() error { return nil }
func (o *OllamaClient) CountTokens(text string) int {
	return CountTokens(text)
}
func (o *OllamaClient) TokenCapacity() int { return o.tokenCap }

// BaseURL returns the normalized endpoint base.
func (o *OllamaClient) BaseURL() string { return o.baseURL }

type ollamaOptions struct {
	Seed        int     `json:"seed"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	TopK        int     `json:"top_k,omitempty"`
	Stream      bool    `json:"stream"`
}

type ollamaGenerateReq struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Options ollamaOptions `json:"options"`
	Stream  bool          `json:"stream"`
}

type ollamaChatReq struct {
	Model    string                 `json:"model"`
	Messages []conversation.Message `json:"messages"`
	Options  ollamaOptions          `json:"options"`
	Stream   bool                   `json:"stream"`
}

type ollamaResp struct {
	Response string `json:"response"`
	Message  struct {
		Content string `json:"content"`
	} `json:"message"`
	EvalCount    int64 `json:"eval_count"`
	EvalDuration int64 `json:"eval_duration"`
}

// Generate issues one non-streaming completion call. Non-2xx statuses are
// returned as errors carrying a truncated body snippet; context-length
// rejections are permanent.
func (o *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	opts := ollamaOptions{
		Seed:        req.Seed,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopK:        req.TopK,
		Stream:      false,
	}

	var (
		path string
		body any
	)
	switch o.mode {
	case ModeChat:
		path = "/api/chat"
		body = ollamaChatReq{Model: req.Model, Messages: req.Messages, Options: opts, Stream: false}
	default:
		path = "/api/generate"
		body = ollamaGenerateReq{Model: req.Model, Prompt: req.Prompt, Options: opts, Stream: false}
	}

	b, _ := json.Marshal(body)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return GenerateResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return GenerateResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(resp.Body)
		const max = 2048
		if len(snippet) > max {
			snippet = snippet[:max]
		}
		err := fmt.Errorf("ollama: unexpected status %s: %s", resp.Status, string(snippet))
		if resp.StatusCode == http.StatusBadRequest && strings.Contains(string(snippet), "context length") {
			return GenerateResponse{}, NewPermanentError(err)
		}
		return GenerateResponse{}, err
	}

	var out ollamaResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return GenerateResponse{}, fmt.Errorf("ollama: decode response: %w", err)
	}

	text := out.Response
	if o.mode == ModeChat {
		text = out.Message.Content
	}
	if text == "" {
		return GenerateResponse{}, ErrEmptyResponse
	}
	return GenerateResponse{
		Text:         text,
		Model:        req.Model,
		EvalCount:    out.EvalCount,
		EvalDuration: out.EvalDuration,
	}, nil
}

type ollamaTagsResp struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the model tags the endpoint advertises via /api/tags.
func (o *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama: unexpected status %s from /api/tags", resp.Status)
	}
	var out ollamaTagsResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama: decode tags: %w", err)
	}
	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

var _ LLMClient = (*OllamaClient)(nil)
