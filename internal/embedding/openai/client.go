// Package openai embeds text with the OpenAI embeddings API or a compatible server.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/spigell/cv-matcher/internal/cverrors"
	"github.com/spigell/cv-matcher/internal/similarity"
)

const Name = "openai"

type Client struct {
	sdk        openaisdk.Client
	model      string
	dimensions int
}

// New creates a client. baseURL is optional and points the SDK at a compatible server.
func New(apiKey, model, baseURL string, dimensions int) (*Client, error) {
	if dimensions < 0 {
		return nil, fmt.Errorf("invalid embedding dimensions %d", dimensions)
	}

	// retries are handled by the embedding wrapper
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	if model = strings.TrimSpace(model); model == "" {
		model = string(openaisdk.EmbeddingModelTextEmbedding3Small)
	}

	return &Client{
		sdk:        openaisdk.NewClient(opts...),
		model:      model,
		dimensions: dimensions,
	}, nil
}

func (c *Client) Name() string  { return Name }
func (c *Client) Model() string { return c.model }

func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	vector, err := c.embed(ctx, text)
	if err != nil {
		return nil, cverrors.NewEmbeddingError(Name, c.model, err)
	}
	return vector, nil
}

func (c *Client) embed(ctx context.Context, text string) ([]float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text must not be empty")
	}

	params := openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: param.NewOpt(text),
		},
		Model: openaisdk.EmbeddingModel(c.model),
	}
	if c.dimensions > 0 {
		params.Dimensions = param.NewOpt(int64(c.dimensions))
	}

	resp, err := c.sdk.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("openai api returned no embedding")
	}

	vector := resp.Data[0].Embedding
	if err := similarity.Validate(vector); err != nil {
		return nil, fmt.Errorf("unusable embedding: %w", err)
	}
	return vector, nil
}
