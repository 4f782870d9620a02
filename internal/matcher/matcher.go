// Package matcher scores every job against every candidate and records the best matches.
package matcher

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/cv-matcher/internal/cverrors"
	"github.com/spigell/cv-matcher/internal/logger"
	"github.com/spigell/cv-matcher/internal/models"
	"github.com/spigell/cv-matcher/internal/similarity"
	"github.com/spigell/cv-matcher/internal/store"
)

// Store is the persistence the matcher needs.
type Store interface {
	JobEmbeddings(ctx context.Context) ([]models.Job, []store.Corrupt, error)
	CandidateEmbeddings(ctx context.Context) ([]models.Candidate, []store.Corrupt, error)
	SaveMatchRun(ctx context.Context, run models.MatchRun, matches []models.Match) error
}

type Options struct {
	Threshold float64
	TopK      int
	Workers   int
	// Model is recorded on the run for later inspection.
	Model string
}

// Ranked is one scored candidate for a job.
type Ranked struct {
	CandidateID string  `json:"candidate_id"`
	Name        string  `json:"name,omitempty"`
	Score       float64 `json:"score"`
	Persisted   bool    `json:"persisted"`
}

type JobResult struct {
	JobID  int64    `json:"job_id"`
	Title  string   `json:"title"`
	Ranked []Ranked `json:"ranked"`
}

type RunResult struct {
	Run       models.MatchRun `json:"run"`
	Jobs      []JobResult     `json:"jobs"`
	Persisted int             `json:"persisted"`
	// Corrupt lists rows skipped because their stored embedding could not be decoded.
	Corrupt []string `json:"corrupt,omitempty"`
}

type Matcher struct {
	store  Store
	opts   Options
	logger *zap.Logger

	newRunID func() string
	now      func() time.Time
}

func New(st Store, opts Options, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Matcher{
		store:    st,
		opts:     opts,
		logger:   logger,
		newRunID: uuid.NewString,
		now:      time.Now,
	}
}

// Rank scores every candidate against the job and keeps the k best,
// ordered by score descending and candidate id ascending on ties.
func Rank(job models.Job, candidates []models.Candidate, k int) ([]Ranked, error) {
	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		score, err := similarity.Cosine(job.Embedding, c.Embedding)
		if err != nil {
			return nil, fmt.Errorf("job %d vs candidate %s: %w", job.ID, c.ID, err)
		}
		ranked = append(ranked, Ranked{CandidateID: c.ID, Name: c.Name, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].CandidateID < ranked[j].CandidateID
	})

	if k >= 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked, nil
}

// Run matches the whole embedded corpus and appends the results as a new run.
// A corpus with mixed dimensions fails with cverrors.ErrDimensionMismatch before anything is written.
func (m *Matcher) Run(ctx context.Context) (*RunResult, error) {
	jobs, corruptJobs, err := m.store.JobEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load job embeddings: %w", err)
	}
	candidates, corruptCandidates, err := m.store.CandidateEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidate embeddings: %w", err)
	}

	result := &RunResult{}
	for _, c := range corruptJobs {
		m.logger.Warn("skipping job with unreadable embedding", zap.String("job_id", c.ID), zap.Error(c.Err))
		result.Corrupt = append(result.Corrupt, "job:"+c.ID)
	}
	for _, c := range corruptCandidates {
		m.logger.Warn("skipping candidate with unreadable embedding", zap.String("candidate_id", c.ID), zap.Error(c.Err))
		result.Corrupt = append(result.Corrupt, "candidate:"+c.ID)
	}

	if err := checkDimensions(jobs, candidates); err != nil {
		return nil, err
	}

	m.logger.Info("matching",
		zap.Int("jobs", len(jobs)),
		zap.Int("candidates", len(candidates)),
		zap.Float64("threshold", m.opts.Threshold),
		zap.Int("top k", m.opts.TopK),
		zap.Int("workers", m.opts.Workers),
	)

	ranked := make([][]Ranked, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Workers)
	for i := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := Rank(jobs[i], candidates, m.opts.TopK)
			if err != nil {
				return err
			}
			ranked[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Run = models.MatchRun{
		ID:        m.newRunID(),
		StartedAt: m.now().UTC(),
		Threshold: m.opts.Threshold,
		TopK:      m.opts.TopK,
		Model:     m.opts.Model,
	}
	runLog := logger.WithRun(m.logger, result.Run.ID, result.Run.Model)

	var matches []models.Match
	for i, job := range jobs {
		jr := JobResult{JobID: job.ID, Title: job.Title, Ranked: ranked[i]}
		for j := range jr.Ranked {
			if !(jr.Ranked[j].Score >= m.opts.Threshold) {
				continue
			}
			jr.Ranked[j].Persisted = true
			matches = append(matches, models.Match{
				JobID:       job.ID,
				CandidateID: jr.Ranked[j].CandidateID,
				Score:       jr.Ranked[j].Score,
				RunID:       result.Run.ID,
			})
		}
		runLog.Debug("job ranked", zap.Int64("job_id", job.ID), zap.Int("ranked", len(jr.Ranked)))
		result.Jobs = append(result.Jobs, jr)
	}

	if err := m.store.SaveMatchRun(ctx, result.Run, matches); err != nil {
		return nil, fmt.Errorf("save match run: %w", err)
	}
	result.Persisted = len(matches)

	runLog.Info("matching finished", zap.Int("persisted", result.Persisted))
	return result, nil
}

func checkDimensions(jobs []models.Job, candidates []models.Candidate) error {
	dim := -1
	var first string

	check := func(what string, n int) error {
		if dim < 0 {
			dim, first = n, what
			return nil
		}
		if n != dim {
			return fmt.Errorf("%w: %s has %d dimensions, %s has %d", cverrors.ErrDimensionMismatch, what, n, first, dim)
		}
		return nil
	}

	for _, j := range jobs {
		if err := check(fmt.Sprintf("job %d", j.ID), len(j.Embedding)); err != nil {
			return err
		}
	}
	for _, c := range candidates {
		if err := check("candidate "+c.ID, len(c.Embedding)); err != nil {
			return err
		}
	}
	return nil
}
