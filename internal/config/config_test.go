package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()

	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(yaml)); err != nil {
		t.Fatalf("read config: %v", err)
	}
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper(t, ""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Match.Threshold != 0.70 || cfg.Match.TopK != 3 || cfg.Match.Workers != 1 {
		t.Fatalf("unexpected match defaults: %+v", cfg.Match)
	}
	if cfg.Embedding.Provider != ProviderOllama {
		t.Fatalf("expected ollama provider, got %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Timeout != time.Minute {
		t.Fatalf("expected 1m timeout, got %s", cfg.Embedding.Timeout)
	}
	if !cfg.Notify.DryRun {
		t.Fatalf("notifications must default to dry run")
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(newViper(t, `
embedding:
  provider: OpenAI
  model: text-embedding-3-small
  timeout: 5s
match:
  threshold: 0.5
  top-k: 10
  workers: 4
notify:
  smtp:
    keyring-service: cv-matcher
`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Embedding.Provider != ProviderOpenAI {
		t.Fatalf("provider must be normalised, got %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Timeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", cfg.Embedding.Timeout)
	}
	if cfg.Match.TopK != 10 || cfg.Match.Workers != 4 || cfg.Match.Threshold != 0.5 {
		t.Fatalf("unexpected match config: %+v", cfg.Match)
	}
	if cfg.Notify.SMTP.KeyringService != "cv-matcher" {
		t.Fatalf("unexpected keyring service %q", cfg.Notify.SMTP.KeyringService)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "unknown provider", yaml: "embedding:\n  provider: bert\n", wantErr: "not supported"},
		{name: "threshold out of range", yaml: "match:\n  threshold: 1.5\n", wantErr: "match.threshold"},
		{name: "zero top-k", yaml: "match:\n  top-k: 0\n", wantErr: "top-k"},
		{name: "empty db path", yaml: "database:\n  path: \"\"\n", wantErr: "database.path"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(newViper(t, tc.yaml))
			if err == nil {
				t.Fatalf("expected error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
