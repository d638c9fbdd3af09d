// Package config reads the process-wide pipeline configuration once at
// startup. Values are immutable for the process lifetime.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/latent-variable/CoT-Decoding-pipeline/internal/decoding"
)

// Backend names an endpoint client implementation.
type Backend string

const (
	BackendOllama     Backend = "ollama"
	BackendOllamaChat Backend = "ollama-chat"
	BackendGemini     Backend = "gemini"
	BackendFake       Backend = "fake"
)

type Config struct {
	// EndpointURL is the Ollama base URL. Full /api/generate or /api/chat
	// URLs are accepted for compatibility with older deployments.
	EndpointURL string
	Backend     Backend
	Timeout     time.Duration

	// RPS/Burst throttle outbound calls; 0 disables throttling.
	RPS   float64
	Burst int

	Pipeline decoding.PipelineConfig
}

// Load reads envFile (ignored when absent) and then the environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{
		EndpointURL: firstNonEmpty(os.Getenv("OLLAMA_API_URL"), "http://localhost:11434/api/generate"),
		Backend:     Backend(firstNonEmpty(strings.TrimSpace(os.Getenv("COT_DECODING_BACKEND")), string(BackendOllama))),
		Timeout:     envDuration("COT_DECODING_TIMEOUT", 60*time.Second),
		RPS:         envFloat("LLM_RPS", 0),
		Burst:       envInt("LLM_BURST", 0),
		Pipeline: decoding.PipelineConfig{
			Model:           strings.TrimSpace(os.Getenv("COT_DECODING_MODEL")),
			K:               envInt("COT_DECODING_K", 10),
			Temperature:     envFloat("COT_DECODING_TEMPERATURE", 0.7),
			MaxTokens:       envInt("COT_DECODING_MAX_TOKENS", 256),
			EvalTemperature: envFloat("COT_DECODING_EVAL_TEMPERATURE", 0.3),
			EvalMaxTokens:   envInt("COT_DECODING_EVAL_MAX_TOKENS", 512),
			Strategy:        strategyFromEnv(),
			Concurrency:     envInt("COT_DECODING_CONCURRENCY", 1),
			Debug:           envBool("COT_DECODING_DEBUG", true),
		},
	}
	return cfg, nil
}

func strategyFromEnv() decoding.Strategy {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("COT_DECODING_SELECTOR"))) {
	case string(decoding.StrategyArbitration):
		return decoding.StrategyArbitration
	default:
		return decoding.StrategyConfidence
	}
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		// The original accepted the literal "True"; ParseBool already
		// covers it, anything else falls back to the default.
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
