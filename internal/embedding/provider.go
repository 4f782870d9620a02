// Package embedding turns text into vectors through an external model.
package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/config"
	"github.com/spigell/cv-matcher/internal/embedding/gemini"
	"github.com/spigell/cv-matcher/internal/embedding/ollama"
	"github.com/spigell/cv-matcher/internal/embedding/openai"
	"github.com/spigell/cv-matcher/internal/secrets"
)

// Provider converts a text into a fixed-length vector. Failures are *cverrors.EmbeddingError.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Model() string
	Name() string
}

// New builds the configured provider wrapped with timeouts, retries and rate limiting.
func New(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (Provider, error) {
	var (
		provider Provider
		err      error
	)

	switch cfg.Provider {
	case config.ProviderOllama:
		provider = ollama.New(cfg.Endpoint, cfg.Model, logger)
	case config.ProviderGemini:
		var apiKey string
		apiKey, err = apiKeyFor(cfg, "gemini api key")
		if err != nil {
			return nil, err
		}
		provider, err = gemini.New(ctx, apiKey, cfg.Model, cfg.Dimensions)
	case config.ProviderOpenAI:
		var apiKey string
		apiKey, err = apiKeyFor(cfg, "openai api key")
		if err != nil {
			return nil, err
		}
		provider, err = openai.New(apiKey, cfg.Model, cfg.Endpoint, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewResilient(provider, Options{
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		RateLimit:  cfg.RateLimit,
	}, logger), nil
}

func apiKeyFor(cfg config.EmbeddingConfig, name string) (string, error) {
	return secrets.Load(secrets.Source{Name: name, Value: cfg.APIKey, File: cfg.APIKeyFile})
}
