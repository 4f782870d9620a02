package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/config"
	"github.com/spigell/cv-matcher/internal/embedding"
	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/notify"
	"github.com/spigell/cv-matcher/internal/pipeline"
	"github.com/spigell/cv-matcher/internal/secrets"
	"github.com/spigell/cv-matcher/internal/store"
)

const (
	app       = "cv-matcher"
	envPrefix = "CV_MATCHER"
)

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-matcher matches resumes to job descriptions with text embeddings",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("db", "", "path to the sqlite database")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	// .env is optional, real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	config.SetDefaults(viper.GetViper())
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// A missing default config file is fine, defaults and env still apply.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

// setup builds the logger and the validated config every command starts from.
func setup() (*zap.Logger, *config.Config) {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}

	l.Debug("starting", zap.String("version", version), zap.Any("config", redacted(cfg)))
	return l, cfg
}

func redacted(cfg *config.Config) config.Config {
	c := *cfg
	if c.Embedding.APIKey != "" {
		c.Embedding.APIKey = "***"
	}
	if c.Notify.SMTP.Password != "" {
		c.Notify.SMTP.Password = "***"
	}
	return c
}

func openStore(ctx context.Context, cfg *config.Config, l *zap.Logger) *store.Store {
	st, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		l.Fatal("opening the database", zap.Error(err), zap.String("path", cfg.Database.Path))
	}
	if err := st.Migrate(ctx); err != nil {
		l.Fatal("migrating the database", zap.Error(err))
	}
	return st
}

func newProvider(ctx context.Context, cfg *config.Config, l *zap.Logger) embedding.Provider {
	provider, err := embedding.New(ctx, cfg.Embedding, l)
	if err != nil {
		l.Fatal("creating the embedding provider", zap.Error(err),
			zap.String("hint", "check the embedding section of the config or CV_MATCHER_EMBEDDING_* variables"),
		)
	}
	l.Info("embedding provider", logger.CommonFields(provider.Name(), provider.Model())...)
	return provider
}

func newNotifier(cfg *config.Config, l *zap.Logger) *notify.Notifier {
	if cfg.Notify.DryRun {
		return notify.New(notify.NewLogSender(l), l)
	}

	smtpCfg := cfg.Notify.SMTP
	password, err := secrets.Load(secrets.Source{
		Name:           "smtp password",
		Value:          smtpCfg.Password,
		File:           smtpCfg.PasswordFile,
		KeyringService: smtpCfg.KeyringService,
		KeyringUser:    smtpCfg.Username,
	})
	if err != nil {
		l.Fatal("loading smtp password", zap.Error(err),
			zap.String("hint", "set notify.smtp.password-file, notify.smtp.keyring-service or enable notify.dry-run"),
		)
	}

	return notify.New(notify.NewSMTPSender(smtpCfg.Host, smtpCfg.Port, smtpCfg.Username, password, cfg.Notify.From), l)
}

func logReports(l *zap.Logger, reports []*pipeline.Report) {
	for _, r := range reports {
		for _, failure := range r.Failures() {
			l.Warn("item failed", zap.String("stage", r.Stage), zap.String("id", failure.ID), zap.Error(failure.Err))
		}
	}
}
