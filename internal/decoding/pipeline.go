package decoding

import (
	"context"
	"log/slog"

	"github.com/latent-variable/CoT-Decoding-pipeline/internal/conversation"
	"github.com/latent-variable/CoT-Decoding-pipeline/internal/llm"
	"github.com/latent-variable/CoT-Decoding-pipeline/internal/llmclient"
)

// Strategy names a selection behavior.
type Strategy string

const (
	// StrategyConfidence ranks candidates by the local throughput score.
	StrategyConfidence Strategy = "confidence"
	// StrategyArbitration asks the model to produce the final answer from
	// the enumerated candidates.
	StrategyArbitration Strategy = "arbitration"
)

// Every failure path of a pipe call ends in one of these plain strings; the
// pipeline never lets a fault propagate to the caller.
const (
	// MsgNoModel is returned when neither the configuration nor the call
	// supplies a model id. The pipeline stays usable afterwards.
	MsgNoModel = "No model specified. Set COT_DECODING_MODEL or pass a model id."
	// MsgNoInput is returned when the conversation contains no user turn;
	// the endpoint is never called in that case.
	MsgNoInput = "I need a question to work with. Please provide a user message."
	// MsgApology is the fixed answer for an empty batch or a failed
	// arbitration call.
	MsgApology = "I'm sorry, but I couldn't generate a response."
)

// PipelineConfig is the immutable per-process configuration of a Pipeline.
// Built once at startup and passed in; the pipeline never re-reads the
// environment.
type PipelineConfig struct {
	Model           string
	K               int
	Temperature     float64
	MaxTokens       int
	TopK            int
	EvalTemperature float64
	EvalMaxTokens   int
	Strategy        Strategy
	Concurrency     int
	Debug           bool
}

// Pipeline is the single entry point: format the conversation, fan out the
// generations, select, assemble the reply.
type Pipeline struct {
	cfg      PipelineConfig
	client   llmclient.LLMClient
	registry *llm.Registry
	logger   *slog.Logger
}

// PipelineOption tweaks a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = logger }
}

// WithRegistry enables a warn-only model availability check against the
// endpoint's advertised tags before fanning out.
func WithRegistry(reg *llm.Registry) PipelineOption {
	return func(p *Pipeline) { p.registry = reg }
}

func NewPipeline(cfg PipelineConfig, client llmclient.LLMClient, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{cfg: cfg, client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pipe runs one full invocation and always returns a user-facing string.
// modelID overrides the configured model when non-empty. messages may be nil,
// in which case userMessage alone forms the conversation.
func (p *Pipeline) Pipe(ctx context.Context, userMessage, modelID string, messages []conversation.Message) string {
	model := modelID
	if model == "" {
		model = p.cfg.Model
	}
	if model == "" {
		return MsgNoModel
	}

	if len(messages) == 0 && userMessage != "" {
		messages = []conversation.Message{{Role: conversation.RoleUser, Content: userMessage}}
	}
	if !conversation.HasUserMessage(messages) {
		return MsgNoInput
	}

	if p.registry != nil {
		if ok, err := p.registry.Has(ctx, model); err == nil && !ok {
			p.logger.Warn("model not advertised by endpoint", "model", model)
		}
	}

	stripped := conversation.StripTrailingAssistant(messages)
	prompt := conversation.FlattenQA(stripped)
	p.logger.Debug("formatted prompt", "tokens", p.client.CountTokens(prompt))

	generator := NewGenerator(p.client, p.logger)
	candidates := generator.Generate(ctx, GenerateParams{
		Model:       model,
		Prompt:      prompt,
		Messages:    stripped,
		K:           p.cfg.K,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
		TopK:        p.cfg.TopK,
		Concurrency: p.cfg.Concurrency,
	})

	selection, err := p.selector(model).Select(ctx, stripped, candidates)
	if err != nil {
		p.logger.Warn("selection failed", "candidates", len(candidates), "error", err)
		return MsgApology
	}

	if p.cfg.Debug {
		trace := selection.Trace
		if p.cfg.Strategy == StrategyArbitration {
			trace = arbitrationTrace(selection.Trace, selection.Text)
		}
		return selection.Text + "\n\n" + trace
	}
	return selection.Text
}

func (p *Pipeline) selector(model string) Selector {
	if p.cfg.Strategy == StrategyArbitration {
		return ArbitrationSelector{
			Client:      p.client,
			Model:       model,
			Temperature: p.cfg.EvalTemperature,
			MaxTokens:   p.cfg.EvalMaxTokens,
		}
	}
	return ConfidenceSelector{}
}
