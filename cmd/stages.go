package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/pipeline"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the database schema",
	Run: func(cmd *cobra.Command, _ []string) {
		runStages(cmd, pipeline.StageInitDB)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load resumes from a directory and jobs from a CSV file",
	Run: func(cmd *cobra.Command, _ []string) {
		bindFlags(cmd.Flags(), map[string]string{
			"resumes": "ingest.resumes-dir",
			"jobs":    "ingest.jobs-csv",
		})
		runStages(cmd, pipeline.StageIngest)
	},
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Compute embeddings for jobs and candidates that have none",
	Run: func(cmd *cobra.Command, _ []string) {
		runStages(cmd, pipeline.StageEmbed)
	},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score every job against every candidate and record a new run",
	Run: func(cmd *cobra.Command, _ []string) {
		bindFlags(cmd.Flags(), map[string]string{
			"threshold": "match.threshold",
			"top-k":     "match.top-k",
			"workers":   "match.workers",
		})
		runStages(cmd, pipeline.StageMatch)
	},
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send interview invitations for the latest strong matches",
	Run: func(cmd *cobra.Command, _ []string) {
		bindFlags(cmd.Flags(), map[string]string{
			"threshold": "notify.threshold",
			"dry-run":   "notify.dry-run",
		})
		runStages(cmd, pipeline.StageNotify)
	},
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run every stage in order, once or on a schedule",
	Run: func(cmd *cobra.Command, _ []string) {
		bindFlags(cmd.Flags(), map[string]string{
			"schedule": "pipeline.schedule",
			"dry-run":  "notify.dry-run",
		})
		runPipeline(cmd)
	},
}

func init() {
	ingestCmd.Flags().String("resumes", "", "directory with resume files (.pdf, .txt, .md)")
	ingestCmd.Flags().String("jobs", "", "CSV file with job descriptions")

	matchCmd.Flags().Float64("threshold", 0, "minimum score a match is persisted with")
	matchCmd.Flags().Int("top-k", 0, "candidates ranked per job")
	matchCmd.Flags().Int("workers", 0, "jobs scored concurrently")
	matchCmd.Flags().Bool("reset", false, "delete every previous run before matching")

	notifyCmd.Flags().Float64("threshold", 0, "minimum score an invitation is sent for")
	notifyCmd.Flags().Bool("dry-run", false, "log invitations instead of sending them")
	notifyCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before sending")

	pipelineCmd.Flags().String("schedule", "", "cron spec (e.g. \"@every 1h\") to repeat the pass until interrupted")
	pipelineCmd.Flags().Bool("dry-run", false, "log invitations instead of sending them")
	pipelineCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation before sending")

	rootCmd.AddCommand(initDBCmd, ingestCmd, embedCmd, matchCmd, notifyCmd, pipelineCmd)
}

// bindFlags binds only the flags the user set, so several commands can share a key.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if f := flags.Lookup(name); f != nil && f.Changed {
			viper.Set(key, f.Value.String())
		}
	}
}

func runStages(cmd *cobra.Command, stages ...string) {
	l, cfg := setup()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := openStore(ctx, cfg, l)
	defer st.Close()

	deps := pipeline.Deps{Store: st, Config: cfg, Logger: l}
	deps.ResetMatches, _ = cmd.Flags().GetBool("reset")
	for _, stage := range stages {
		switch stage {
		case pipeline.StageEmbed:
			deps.Provider = newProvider(ctx, cfg, l)
		case pipeline.StageNotify:
			deps.Notifier = newNotifier(cfg, l)
			deps.Confirm = confirmFor(cmd)
		}
	}

	reports, err := pipeline.New(deps).Run(ctx, stages...)
	logReports(l, reports)
	if err != nil {
		l.Fatal("stage failed", zap.Error(err))
	}
}

func runPipeline(cmd *cobra.Command) {
	l, cfg := setup()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := openStore(ctx, cfg, l)
	defer st.Close()

	p := pipeline.New(pipeline.Deps{
		Store:    st,
		Provider: newProvider(ctx, cfg, l),
		Notifier: newNotifier(cfg, l),
		Config:   cfg,
		Logger:   l,
		Confirm:  confirmFor(cmd),
	})

	pass := func(ctx context.Context) error {
		reports, err := p.Run(ctx, pipeline.Stages...)
		logReports(l, reports)
		return err
	}

	if cfg.Pipeline.Schedule == "" {
		if err := pass(ctx); err != nil {
			l.Fatal("pipeline failed", zap.Error(err))
		}
		return
	}

	scheduler, err := pipeline.NewScheduler(ctx, cfg.Pipeline.Schedule, pass, l)
	if err != nil {
		l.Fatal("creating the scheduler", zap.Error(err))
	}
	if err := scheduler.Run(ctx); err != nil {
		l.Fatal("scheduler stopped", zap.Error(err))
	}
}
