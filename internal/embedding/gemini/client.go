// Package gemini embeds text with the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/genai"

	"github.com/spigell/cv-matcher/internal/cverrors"
	"github.com/spigell/cv-matcher/internal/similarity"
)

const (
	Name         = "gemini"
	defaultModel = "gemini-embedding-001"
)

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

type Client struct {
	models     contentEmbedder
	model      string
	dimensions int
}

// New creates a client for the Gemini API backend. Zero dimensions keeps the model default.
func New(ctx context.Context, apiKey, model string, dimensions int) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newClient(client.Models, model, dimensions)
}

func newClient(models contentEmbedder, model string, dimensions int) (*Client, error) {
	if dimensions < 0 || dimensions > math.MaxInt32 {
		return nil, fmt.Errorf("invalid embedding dimensions %d", dimensions)
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	return &Client{models: models, model: model, dimensions: dimensions}, nil
}

func (c *Client) Name() string { return Name }

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	vector, err := c.embed(ctx, text)
	if err != nil {
		return nil, cverrors.NewEmbeddingError(Name, c.Model(), err)
	}
	return vector, nil
}

func (c *Client) embed(ctx context.Context, text string) ([]float64, error) {
	if c == nil || c.models == nil {
		return nil, errors.New("gemini client is not initialized")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text must not be empty")
	}

	var cfg *genai.EmbedContentConfig
	if c.dimensions > 0 {
		//nolint:gosec // bounded by math.MaxInt32 in newClient
		dims := int32(c.dimensions)
		cfg = &genai.EmbedContentConfig{OutputDimensionality: &dims}
	}

	resp, err := c.models.EmbedContent(ctx, c.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errors.New("gemini api returned no embedding")
	}

	values := resp.Embeddings[0].Values
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}

	if err := similarity.Validate(out); err != nil {
		return nil, fmt.Errorf("unusable embedding: %w", err)
	}
	return out, nil
}
