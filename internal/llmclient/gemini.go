package llmclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"github.com/latent-variable/CoT-Decoding-pipeline/internal/conversation"
)

// GeminiClient is a thin wrapper around the official genai client so the
// pipeline can fan out against Gemini instead of a local Ollama server.
type GeminiClient struct {
	cli      *genai.Client
	tokenCap int
}

func NewGeminiClient(ctx context.Context) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, tokenCap: 32768}, nil
}

func (g *GeminiClient) Name() string { return "Gemini" }
func (g *GeminiClient) Close() error { return nil }
func (g *GeminiClient) CountTokens(text string) int {
	return CountTokens(text)
}
func (g *GeminiClient) TokenCapacity() int { return g.tokenCap }

// Generate sends one seeded completion request. Gemini does not report an
// evaluation duration, so wall-clock time stands in for it.
func (g *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error) {
	contents := geminiContents(req)
	if len(contents) == 0 {
		return GenerateResponse{}, fmt.Errorf("gemini: empty request")
	}

	seed := int32(req.Seed)
	temp := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		Seed:        &seed,
		Temperature: &temp,
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.TopK > 0 {
		topK := float32(req.TopK)
		cfg.TopK = &topK
	}

	start := time.Now()
	resp, err := g.cli.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return GenerateResponse{}, err
	}
	elapsed := time.Since(start)

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return GenerateResponse{}, ErrEmptyResponse
	}
	text := resp.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return GenerateResponse{}, ErrEmptyResponse
	}

	out := GenerateResponse{
		Text:         text,
		Model:        req.Model,
		EvalDuration: elapsed.Nanoseconds(),
	}
	if resp.UsageMetadata != nil {
		out.EvalCount = int64(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

func geminiContents(req GenerateRequest) []*genai.Content {
	if len(req.Messages) == 0 {
		if req.Prompt == "" {
			return nil
		}
		return []*genai.Content{{Parts: []*genai.Part{{Text: req.Prompt}}}}
	}
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.RoleUser
		if m.Role == conversation.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return contents
}

var _ LLMClient = (*GeminiClient)(nil)
