// Package dashboard serves the review API: jobs, ranked matches, stage triggers and uploads.
package dashboard

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/config"
	"github.com/spigell/cv-matcher/internal/embedding"
	"github.com/spigell/cv-matcher/internal/notify"
	"github.com/spigell/cv-matcher/internal/pipeline"
	"github.com/spigell/cv-matcher/internal/store"
)

const shutdownTimeout = 10 * time.Second

type Deps struct {
	Store    *store.Store
	Pipeline *pipeline.Pipeline
	Provider embedding.Provider
	Notifier *notify.Notifier
	Config   config.DashboardConfig
	// MinScore is the default min_score of match listings.
	MinScore float64
	Logger   *zap.Logger
}

type Server struct {
	store    *store.Store
	pipeline *pipeline.Pipeline
	ingester *pipeline.Ingester
	provider embedding.Provider
	notifier *notify.Notifier
	cfg      config.DashboardConfig
	minScore float64
	logger   *zap.Logger
}

func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:    deps.Store,
		pipeline: deps.Pipeline,
		ingester: pipeline.NewIngester(deps.Store, logger),
		provider: deps.Provider,
		notifier: deps.Notifier,
		cfg:      deps.Config,
		minScore: deps.MinScore,
		logger:   logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(s.logger))

	r.Get("/healthz", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.stats)

		r.Get("/jobs", s.listJobs)
		r.Post("/jobs", s.uploadJobs)
		r.Get("/jobs/{id}", s.getJob)
		r.Get("/jobs/{id}/matches", s.jobMatches)
		r.Get("/jobs/{id}/matches.csv", s.jobMatchesCSV)
		r.Get("/jobs/{id}/history", s.jobHistory)

		r.Get("/candidates/{id}", s.getCandidate)
		r.Post("/resumes", s.uploadResumes)

		r.Post("/stages/{stage}", s.runStage)
		r.Post("/matches/{jobID}/{candidateID}/invite", s.invite)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("dashboard shutting down")
	return srv.Shutdown(shutdownCtx)
}
