package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/cverrors"
)

func TestEmbedSendsModelAndPrompt(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "mxbai-embed-large", zap.NewNop())
	vector, err := c.Embed(context.Background(), "Go developer")
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}

	if got.Model != "mxbai-embed-large" || got.Prompt != "Go developer" {
		t.Fatalf("unexpected request body: %+v", got)
	}
	if len(vector) != 3 || vector[2] != 0.3 {
		t.Fatalf("unexpected vector: %v", vector)
	}
}

func TestEmbedFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom"},
		{name: "invalid json", status: http.StatusOK, body: "not json"},
		{name: "missing embedding", status: http.StatusOK, body: `{"other":1}`},
		{name: "empty embedding", status: http.StatusOK, body: `{"embedding":[]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, "m", nil).Embed(context.Background(), "text")
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, cverrors.ErrEmbedding) {
				t.Fatalf("expected embedding error, got %T: %v", err, err)
			}
		})
	}
}

func TestEmbedStatusErrorCarriesCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "m", nil).Embed(context.Background(), "text")

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.HTTPStatus() != http.StatusTooManyRequests {
		t.Fatalf("unexpected status %d", statusErr.HTTPStatus())
	}
}

func TestEmbedRejectsEmptyText(t *testing.T) {
	if _, err := New("http://127.0.0.1:1", "m", nil).Embed(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty text")
	}
}
