package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/dashboard"
	"github.com/spigell/cv-matcher/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API",
	Run: func(cmd *cobra.Command, _ []string) {
		bindFlags(cmd.Flags(), map[string]string{
			"addr": "dashboard.addr",
		})
		serve(cmd)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command) {
	l, cfg := setup()
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := openStore(ctx, cfg, l)
	defer st.Close()

	provider := newProvider(ctx, cfg, l)
	notifier := newNotifier(cfg, l)

	p := pipeline.New(pipeline.Deps{
		Store:    st,
		Provider: provider,
		Notifier: notifier,
		Config:   cfg,
		Logger:   l,
	})

	server := dashboard.New(dashboard.Deps{
		Store:    st,
		Pipeline: p,
		Provider: provider,
		Notifier: notifier,
		Config:   cfg.Dashboard,
		MinScore: cfg.Notify.Threshold,
		Logger:   l,
	})

	if err := server.ListenAndServe(ctx); err != nil {
		l.Fatal("dashboard stopped", zap.Error(err))
	}
}
