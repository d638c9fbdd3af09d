// Command cotd runs the CoT-Decoding response-selection pipeline from the
// command line: fan out k sampled generations for a question and print the
// selected answer.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/latent-variable/CoT-Decoding-pipeline/internal/config"
	"github.com/latent-variable/CoT-Decoding-pipeline/internal/conversation"
	"github.com/latent-variable/CoT-Decoding-pipeline/internal/decoding"
	"github.com/latent-variable/CoT-Decoding-pipeline/internal/llm"
	"github.com/latent-variable/CoT-Decoding-pipeline/internal/llmclient"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "cotd",
		Usage: "best-of-N response selection in front of an LLM endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Usage: "env file path", Value: ""},
		},
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "run the pipeline for a question and print the selected answer",
				ArgsUsage: "QUESTION...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "model", Usage: "model id (overrides COT_DECODING_MODEL)"},
					&cli.IntFlag{Name: "k", Usage: "candidate count (overrides COT_DECODING_K)"},
					&cli.StringFlag{Name: "selector", Usage: "confidence or arbitration"},
					&cli.BoolFlag{Name: "debug", Usage: "append the selection trace to the answer"},
				},
				Action: askAction,
			},
			{
				Name:   "models",
				Usage:  "list the model tags the endpoint advertises",
				Action: modelsAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func askAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return err
	}
	if v := cmd.String("model"); v != "" {
		cfg.Pipeline.Model = v
	}
	if v := cmd.Int("k"); v > 0 {
		cfg.Pipeline.K = v
	}
	if v := cmd.String("selector"); v != "" {
		cfg.Pipeline.Strategy = decoding.Strategy(v)
	}
	if cmd.Bool("debug") {
		cfg.Pipeline.Debug = true
	}

	question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if question == "" {
		return errors.New("a question argument is required")
	}

	client, err := buildClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	tally := llm.NewUsageTally()
	wrapped := llm.Wrap(client,
		llm.RateLimit(cfg.RPS, cfg.Burst),
		llm.WithLogging(slog.Default()),
		llm.WithUsageTally(tally),
	)

	var opts []decoding.PipelineOption
	if oc, ok := client.(*llmclient.OllamaClient); ok {
		opts = append(opts, decoding.WithRegistry(llm.NewRegistry(oc, oc.BaseURL(), 0)))
	}

	pipeline := decoding.NewPipeline(cfg.Pipeline, wrapped, opts...)
	answer := pipeline.Pipe(ctx, question, "", []conversation.Message{
		{Role: conversation.RoleUser, Content: question},
	})
	fmt.Println(answer)

	for model, stat := range tally.Snapshot() {
		slog.Debug("usage", "model", model,
			"requests", stat.Requests, "tokens", stat.Tokens, "errors", stat.Errors)
	}
	return nil
}

func modelsAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return err
	}
	client := llmclient.NewOllamaClient(cfg.EndpointURL, llmclient.ModeGenerate, cfg.Timeout)
	reg := llm.NewRegistry(client, client.BaseURL(), 0)
	tags, err := reg.List(ctx)
	if err != nil {
		return err
	}
	for _, tag := range tags {
		fmt.Println(tag)
	}
	return nil
}

func buildClient(ctx context.Context, cfg *config.Config) (llmclient.LLMClient, error) {
	switch cfg.Backend {
	case config.BackendOllamaChat:
		return llmclient.NewOllamaClient(cfg.EndpointURL, llmclient.ModeChat, cfg.Timeout), nil
	case config.BackendGemini:
		return llmclient.NewGeminiClient(ctx)
	case config.BackendFake:
		return llmclient.NewFakeClient(0), nil
	default:
		return llmclient.NewOllamaClient(cfg.EndpointURL, llmclient.ModeGenerate, cfg.Timeout), nil
	}
}
