package decoding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/latent-variable/CoT-Decoding-pipeline/internal/conversation"
	"github.com/latent-variable/CoT-Decoding-pipeline/internal/llmclient"
)

// ErrNoCandidates means the batch produced nothing to choose from. This is a
// normal outcome, not a crash: the facade turns it into the apology string.
var ErrNoCandidates = errors.New("decoding: no candidate available")

// Selection is the selector's verdict. Trace is the explanatory payload shown
// in debug mode: the per-candidate score dump for confidence selection, the
// exact arbitration message for model arbitration.
type Selection struct {
	Text  string
	Trace string
}

// Selector picks the final answer from a candidate batch.
type Selector interface {
	Select(ctx context.Context, conv []conversation.Message, candidates []Candidate) (Selection, error)
}

// ConfidenceSelector picks the candidate with the strictly greatest
// confidence score. Ties go to the earliest generation (strict > comparison),
// so the first occurrence of the maximum wins.
type ConfidenceSelector struct{}

func (ConfidenceSelector) Select(ctx context.Context, conv []conversation.Message, candidates []Candidate) (Selection, error) {
	_ = ctx
	_ = conv
	if len(candidates) == 0 {
		return Selection{}, ErrNoCandidates
	}
	best := candidates[0]
	highest := -1.0
	for _, c := range candidates {
		if c.Confidence > highest {
			highest = c.Confidence
			best = c
		}
	}
	return Selection{Text: best.Text, Trace: confidenceTrace(candidates, best)}, nil
}

// arbitrationInstruction is the single instruction sentence placed ahead of
// the enumerated candidates.
const arbitrationInstruction = "Considering the candidate responses listed below, reply with the single best final answer to my last message, without referring to the candidate list or to these instructions."

// ArbitrationSelector asks the model itself to produce the final answer from
// the enumerated candidates. A failed arbitration call is surfaced as an
// error; there is deliberately no fallback to confidence scoring.
type ArbitrationSelector struct {
	Client      llmclient.LLMClient
	Model       string
	Temperature float64
	MaxTokens   int
}

func (s ArbitrationSelector) Select(ctx context.Context, conv []conversation.Message, candidates []Candidate) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{}, ErrNoCandidates
	}

	prompt := buildArbitrationMessage(candidates)
	messages := append(conversation.StripTrailingAssistant(conv),
		conversation.Message{Role: conversation.RoleUser, Content: prompt})

	// Both payload shapes are populated so prompt-shaped clients (the
	// generate endpoint) carry the arbitration turn too.
	resp, err := s.Client.Generate(ctx, llmclient.GenerateRequest{
		Model:       s.Model,
		Prompt:      conversation.FlattenQA(messages),
		Messages:    messages,
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
	})
	if err != nil {
		return Selection{}, fmt.Errorf("arbitration call: %w", err)
	}
	if resp.Text == "" {
		return Selection{}, fmt.Errorf("arbitration call: %w", llmclient.ErrEmptyResponse)
	}
	return Selection{Text: resp.Text, Trace: prompt}, nil
}

// buildArbitrationMessage enumerates candidates in generation order as
// "[1] ...", "[2] ..." after the instruction sentence.
func buildArbitrationMessage(candidates []Candidate) string {
	var b strings.Builder
	b.WriteString(arbitrationInstruction)
	b.WriteString("\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "\n[%d] %s", i+1, c.Text)
	}
	return b.String()
}
