// Package config holds the settings every cv-matcher component receives explicitly.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Match     MatchConfig     `mapstructure:"match"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type IngestConfig struct {
	ResumesDir string `mapstructure:"resumes-dir"`
	JobsCSV    string `mapstructure:"jobs-csv"`
}

type EmbeddingConfig struct {
	Provider   string        `mapstructure:"provider"`
	Model      string        `mapstructure:"model"`
	Endpoint   string        `mapstructure:"endpoint"`
	APIKey     string        `mapstructure:"api-key"`
	APIKeyFile string        `mapstructure:"api-key-file"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max-retries"`
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64 `mapstructure:"rate-limit"`
}

type MatchConfig struct {
	Threshold float64 `mapstructure:"threshold"`
	TopK      int     `mapstructure:"top-k"`
	Workers   int     `mapstructure:"workers"`
}

type NotifyConfig struct {
	Threshold float64    `mapstructure:"threshold"`
	DryRun    bool       `mapstructure:"dry-run"`
	From      string     `mapstructure:"from"`
	SMTP      SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	PasswordFile string `mapstructure:"password-file"`
	// KeyringService enables loading the password from the OS keychain.
	KeyringService string `mapstructure:"keyring-service"`
}

type DashboardConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
	// MaxUploadMB bounds multipart uploads.
	MaxUploadMB int64 `mapstructure:"max-upload-mb"`
}

type PipelineConfig struct {
	LockFile string `mapstructure:"lock-file"`
	Schedule string `mapstructure:"schedule"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "db/database.sqlite")

	v.SetDefault("ingest.resumes-dir", "data/resumes")
	v.SetDefault("ingest.jobs-csv", "data/job_description.csv")

	v.SetDefault("embedding.provider", ProviderOllama)
	v.SetDefault("embedding.model", "mxbai-embed-large")
	v.SetDefault("embedding.endpoint", "http://localhost:11434/api/embeddings")
	v.SetDefault("embedding.timeout", 60*time.Second)
	v.SetDefault("embedding.max-retries", 3)
	v.SetDefault("embedding.rate-limit", 0)

	v.SetDefault("match.threshold", 0.70)
	v.SetDefault("match.top-k", 3)
	v.SetDefault("match.workers", 1)

	v.SetDefault("notify.threshold", 0.70)
	v.SetDefault("notify.dry-run", true)
	v.SetDefault("notify.smtp.host", "smtp.gmail.com")
	v.SetDefault("notify.smtp.port", 587)

	v.SetDefault("dashboard.addr", ":8080")
	v.SetDefault("dashboard.read-timeout", 15*time.Second)
	v.SetDefault("dashboard.write-timeout", 5*time.Minute)
	v.SetDefault("dashboard.max-upload-mb", 20)

	v.SetDefault("pipeline.lock-file", "db/cv-matcher.lock")
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Embedding.Provider = strings.ToLower(strings.TrimSpace(cfg.Embedding.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}

	switch c.Embedding.Provider {
	case ProviderOllama:
		if strings.TrimSpace(c.Embedding.Endpoint) == "" {
			errs = append(errs, errors.New("embedding.endpoint is required for ollama"))
		}
	case ProviderGemini, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("embedding.provider %q is not supported", c.Embedding.Provider))
	}
	if c.Embedding.Timeout <= 0 {
		errs = append(errs, errors.New("embedding.timeout must be positive"))
	}
	if c.Embedding.MaxRetries < 0 {
		errs = append(errs, errors.New("embedding.max-retries must not be negative"))
	}
	if c.Embedding.RateLimit < 0 {
		errs = append(errs, errors.New("embedding.rate-limit must not be negative"))
	}

	if c.Match.Threshold < -1 || c.Match.Threshold > 1 {
		errs = append(errs, fmt.Errorf("match.threshold %.2f is outside [-1, 1]", c.Match.Threshold))
	}
	if c.Match.TopK <= 0 {
		errs = append(errs, errors.New("match.top-k must be positive"))
	}
	if c.Match.Workers <= 0 {
		errs = append(errs, errors.New("match.workers must be positive"))
	}

	if c.Notify.Threshold < -1 || c.Notify.Threshold > 1 {
		errs = append(errs, fmt.Errorf("notify.threshold %.2f is outside [-1, 1]", c.Notify.Threshold))
	}

	return errors.Join(errs...)
}
