// Package ollama calls an Ollama compatible embeddings endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/cverrors"
	"github.com/spigell/cv-matcher/internal/similarity"
)

const (
	Name = "ollama"

	contentType = "application/json"
	// maxErrorBody limits how much of a failed response ends up in the error.
	maxErrorBody = 512
)

// StatusError is returned for non-200 responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("bad status: %d", e.Code)
	}
	return fmt.Sprintf("bad status: %d: %s", e.Code, e.Body)
}

func (e *StatusError) HTTPStatus() int { return e.Code }

type Client struct {
	endpoint   string
	model      string
	logger     *zap.Logger
	HTTPClient *http.Client
}

type request struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type response struct {
	Embedding []float64 `json:"embedding"`
}

func New(endpoint, model string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint: strings.TrimSpace(endpoint),
		model:    strings.TrimSpace(model),
		logger:   logger,
		// timeouts come from the caller context
		HTTPClient: &http.Client{},
	}
}

func (c *Client) Name() string  { return Name }
func (c *Client) Model() string { return c.model }

// Embed posts {model, prompt} and returns the "embedding" array of the reply.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	vector, err := c.embed(ctx, text)
	if err != nil {
		return nil, cverrors.NewEmbeddingError(Name, c.model, err)
	}
	return vector, nil
}

func (c *Client) embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text must not be empty")
	}

	payload, err := json.Marshal(request{Model: c.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)

	c.logger.Debug("make request", zap.String("url", req.URL.String()), zap.Int("text length", len(text)))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body := strings.TrimSpace(string(data))
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: body}
	}

	var decoded response
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if err := similarity.Validate(decoded.Embedding); err != nil {
		return nil, fmt.Errorf("unusable embedding: %w", err)
	}
	return decoded.Embedding, nil
}
