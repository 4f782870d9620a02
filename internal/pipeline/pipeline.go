// Package pipeline runs the ingest, embed, match and notify passes.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/cv-matcher/internal/config"
	"github.com/spigell/cv-matcher/internal/embedding"
	"github.com/spigell/cv-matcher/internal/matcher"
	"github.com/spigell/cv-matcher/internal/models"
	"github.com/spigell/cv-matcher/internal/notify"
	"github.com/spigell/cv-matcher/internal/store"
)

const (
	StageInitDB = "init-db"
	StageIngest = "ingest"
	StageEmbed  = "embed"
	StageMatch  = "match"
	StageNotify = "notify"
)

// Stages lists every stage in the order a full pass runs them.
var Stages = []string{StageInitDB, StageIngest, StageEmbed, StageMatch, StageNotify}

// ErrUnknownStage is returned for stage names outside Stages.
var ErrUnknownStage = errors.New("unknown stage")

// ConfirmFunc is asked before invitations go out. Returning false skips sending.
type ConfirmFunc func(ctx context.Context, matches []models.MatchView) (bool, error)

// Deps are the collaborators the stages use. Provider and Notifier may be nil
// when the stages needing them are not run.
type Deps struct {
	Store    *store.Store
	Provider embedding.Provider
	Notifier *notify.Notifier
	Config   *config.Config
	Logger   *zap.Logger
	Confirm  ConfirmFunc

	// ResetMatches drops every stored run before the match stage, under the lock.
	ResetMatches bool
}

type Pipeline struct {
	deps Deps
	lock *Lock
}

func New(deps Deps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	p := &Pipeline{deps: deps}
	if deps.Config != nil && deps.Config.Pipeline.LockFile != "" {
		p.lock = NewLock(deps.Config.Pipeline.LockFile)
	}
	return p
}

// Run executes the named stages in order while holding the lock file. Per-item
// failures end up in the reports; a structural error stops the pass.
func (p *Pipeline) Run(ctx context.Context, stages ...string) ([]*Report, error) {
	for _, name := range stages {
		if !knownStage(name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStage, name)
		}
	}

	if p.lock != nil {
		if err := p.lock.Acquire(); err != nil {
			return nil, err
		}
		defer func() {
			if err := p.lock.Release(); err != nil {
				p.deps.Logger.Warn("releasing lock", zap.Error(err))
			}
		}()
	}

	var reports []*Report
	for _, name := range stages {
		report, err := p.runStage(ctx, name)
		if report != nil {
			reports = append(reports, report)
			p.deps.Logger.Info("pipeline stage", report.Fields()...)
		}
		if err != nil {
			return reports, fmt.Errorf("%s: %w", name, err)
		}
	}
	return reports, nil
}

func (p *Pipeline) runStage(ctx context.Context, name string) (*Report, error) {
	switch name {
	case StageInitDB:
		report := NewReport(StageInitDB)
		if err := p.deps.Store.Migrate(ctx); err != nil {
			return report, err
		}
		report.Ok("schema", "ready")
		return report, nil
	case StageIngest:
		return p.ingest(ctx)
	case StageEmbed:
		if p.deps.Provider == nil {
			return nil, errors.New("embedding provider is not configured")
		}
		return Embed(ctx, p.deps.Store, p.deps.Provider, p.deps.Logger)
	case StageMatch:
		return p.match(ctx)
	case StageNotify:
		if p.deps.Notifier == nil {
			return nil, errors.New("notifier is not configured")
		}
		return Notify(ctx, p.deps.Store, p.deps.Notifier, p.deps.Config.Notify.Threshold, p.deps.Confirm, p.deps.Logger)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStage, name)
}

func (p *Pipeline) ingest(ctx context.Context) (*Report, error) {
	cfg := p.deps.Config.Ingest
	ingester := NewIngester(p.deps.Store, p.deps.Logger)
	report := NewReport(StageIngest)

	if cfg.ResumesDir != "" {
		resumes, err := ingester.Resumes(ctx, cfg.ResumesDir)
		report.Results = append(report.Results, resumes.Results...)
		if err != nil {
			return report, err
		}
	}

	if cfg.JobsCSV != "" {
		jobs, err := ingester.JobsFile(ctx, cfg.JobsCSV)
		report.Results = append(report.Results, jobs.Results...)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

func (p *Pipeline) match(ctx context.Context) (*Report, error) {
	cfg := p.deps.Config.Match
	var model string
	if p.deps.Provider != nil {
		model = p.deps.Provider.Model()
	} else {
		model = p.deps.Config.Embedding.Model
	}

	m := matcher.New(p.deps.Store, matcher.Options{
		Threshold: cfg.Threshold,
		TopK:      cfg.TopK,
		Workers:   cfg.Workers,
		Model:     model,
	}, p.deps.Logger)

	report := NewReport(StageMatch)
	if p.deps.ResetMatches {
		if err := p.deps.Store.ResetMatches(ctx); err != nil {
			return report, fmt.Errorf("reset matches: %w", err)
		}
		p.deps.Logger.Info("previous match runs deleted")
	}

	result, err := m.Run(ctx)
	if err != nil {
		return report, err
	}
	return MatchReport(result), nil
}

// MatchReport turns a matcher run into a stage report, one result per job.
func MatchReport(result *matcher.RunResult) *Report {
	report := NewReport(StageMatch)
	for _, c := range result.Corrupt {
		report.Fail(c, errors.New("stored embedding is unreadable"))
	}
	for _, job := range result.Jobs {
		persisted := 0
		for _, r := range job.Ranked {
			if r.Persisted {
				persisted++
			}
		}
		report.Ok(fmt.Sprintf("job:%d", job.JobID), fmt.Sprintf("run %s: %d ranked, %d persisted", result.Run.ID, len(job.Ranked), persisted))
	}
	return report
}

func knownStage(name string) bool {
	for _, s := range Stages {
		if s == name {
			return true
		}
	}
	return false
}
