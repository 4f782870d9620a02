package gemini

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"google.golang.org/genai"

	"github.com/spigell/cv-matcher/internal/cverrors"
)

type fakeEmbedder struct {
	model  string
	config *genai.EmbedContentConfig
	text   string
	resp   *genai.EmbedContentResponse
	err    error
}

func (f *fakeEmbedder) EmbedContent(_ context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.text = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func TestEmbedConvertsValues(t *testing.T) {
	fake := &fakeEmbedder{resp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.5, 0.25}}},
	}}

	c, err := newClient(fake, "", 2)
	if err != nil {
		t.Fatalf("newClient returned error: %v", err)
	}

	vector, err := c.Embed(context.Background(), "  resume text ")
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}

	if fake.model != defaultModel {
		t.Fatalf("expected default model, got %q", fake.model)
	}
	if fake.text != "resume text" {
		t.Fatalf("unexpected text sent: %q", fake.text)
	}
	if fake.config == nil || fake.config.OutputDimensionality == nil || *fake.config.OutputDimensionality != 2 {
		t.Fatalf("expected output dimensionality 2, got %+v", fake.config)
	}
	if len(vector) != 2 || vector[0] != 0.5 || vector[1] != 0.25 {
		t.Fatalf("unexpected vector: %v", vector)
	}
}

func TestEmbedErrors(t *testing.T) {
	cases := []struct {
		name string
		fake *fakeEmbedder
	}{
		{name: "api error", fake: &fakeEmbedder{err: genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}}},
		{name: "no embeddings", fake: &fakeEmbedder{resp: &genai.EmbedContentResponse{}}},
		{name: "empty values", fake: &fakeEmbedder{resp: &genai.EmbedContentResponse{
			Embeddings: []*genai.ContentEmbedding{{}},
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := newClient(tc.fake, "m", 0)
			if err != nil {
				t.Fatalf("newClient returned error: %v", err)
			}

			_, err = c.Embed(context.Background(), "text")
			if !errors.Is(err, cverrors.ErrEmbedding) {
				t.Fatalf("expected embedding error, got %v", err)
			}
		})
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background(), " ", "", 0); err == nil {
		t.Fatal("expected error for empty api key")
	}
}
