package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/spigell/cv-matcher/internal/models"
)

// Stats is a row count summary of the database.
type Stats struct {
	Jobs               int    `json:"jobs"`
	JobsEmbedded       int    `json:"jobs_embedded"`
	Candidates         int    `json:"candidates"`
	CandidatesEmbedded int    `json:"candidates_embedded"`
	Runs               int    `json:"runs"`
	Matches            int    `json:"matches"`
	LatestRunID        string `json:"latest_run_id,omitempty"`
}

// SaveMatchRun records the run and its matches atomically.
func (s *Store) SaveMatchRun(ctx context.Context, run models.MatchRun, matches []models.Match) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin match run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO match_runs (run_id, started_at, threshold, top_k, model) VALUES (?, ?, ?, ?, ?);`,
		run.ID, startedAt.UTC().Format(timeLayout), run.Threshold, run.TopK, run.Model,
	); err != nil {
		return fmt.Errorf("insert match run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO matches (job_id, candidate_id, similarity_score, matched_on, run_id) VALUES (?, ?, ?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("prepare match insert: %w", err)
	}
	defer stmt.Close()

	now := nowText()
	for _, m := range matches {
		if _, err := stmt.ExecContext(ctx, m.JobID, m.CandidateID, m.Score, now, run.ID); err != nil {
			return fmt.Errorf("insert match %d/%s: %w", m.JobID, m.CandidateID, err)
		}
	}

	return tx.Commit()
}

// LatestRun returns the most recent match run or ErrNotFound.
func (s *Store) LatestRun(ctx context.Context) (*models.MatchRun, error) {
	var (
		run       models.MatchRun
		startedAt string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT run_id, started_at, threshold, top_k, model FROM match_runs
ORDER BY started_at DESC, rowid DESC LIMIT 1;`).Scan(&run.ID, &startedAt, &run.Threshold, &run.TopK, &run.Model)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match run: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan match run: %w", err)
	}

	run.StartedAt = parseTime(startedAt)
	return &run, nil
}

const matchViewColumns = `
SELECT m.match_id, m.job_id, j.title, m.candidate_id, c.name, c.email, c.skills, c.resume_text,
       m.similarity_score, m.matched_on, m.run_id
FROM matches m
JOIN jobs j ON j.job_id = m.job_id
JOIN candidates c ON c.candidate_id = m.candidate_id`

// LatestMatchesForJob lists matches of the latest run for a job with score >= minScore.
// Without any run the result is empty.
func (s *Store) LatestMatchesForJob(ctx context.Context, jobID int64, minScore float64) ([]models.MatchView, error) {
	run, err := s.LatestRun(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return s.matchViews(ctx, matchViewColumns+`
WHERE m.run_id = ? AND m.job_id = ? AND m.similarity_score >= ?
ORDER BY m.similarity_score DESC, m.candidate_id ASC;`, run.ID, jobID, minScore)
}

// AllMatchesForJob lists every stored match for a job across all runs.
func (s *Store) AllMatchesForJob(ctx context.Context, jobID int64) ([]models.MatchView, error) {
	return s.matchViews(ctx, matchViewColumns+`
WHERE m.job_id = ?
ORDER BY m.matched_on DESC, m.match_id DESC;`, jobID)
}

// MatchesForNotification lists matches of the latest run with score >= minScore.
func (s *Store) MatchesForNotification(ctx context.Context, minScore float64) ([]models.MatchView, error) {
	run, err := s.LatestRun(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return s.matchViews(ctx, matchViewColumns+`
WHERE m.run_id = ? AND m.similarity_score >= ?
ORDER BY m.job_id ASC, m.similarity_score DESC, m.candidate_id ASC;`, run.ID, minScore)
}

// LatestMatch returns the latest run's match for a job and candidate pair.
func (s *Store) LatestMatch(ctx context.Context, jobID int64, candidateID string) (*models.MatchView, error) {
	run, err := s.LatestRun(ctx)
	if err != nil {
		return nil, err
	}

	views, err := s.matchViews(ctx, matchViewColumns+`
WHERE m.run_id = ? AND m.job_id = ? AND m.candidate_id = ?;`, run.ID, jobID, candidateID)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, fmt.Errorf("match %d/%s: %w", jobID, candidateID, ErrNotFound)
	}
	return &views[0], nil
}

// ResetMatches drops every match and run.
func (s *Store) ResetMatches(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{`DELETE FROM matches;`, `DELETE FROM match_runs;`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset matches: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
SELECT
  (SELECT COUNT(1) FROM jobs),
  (SELECT COUNT(1) FROM jobs WHERE embedding IS NOT NULL),
  (SELECT COUNT(1) FROM candidates),
  (SELECT COUNT(1) FROM candidates WHERE embedding IS NOT NULL),
  (SELECT COUNT(1) FROM match_runs),
  (SELECT COUNT(1) FROM matches);`).Scan(
		&st.Jobs, &st.JobsEmbedded, &st.Candidates, &st.CandidatesEmbedded, &st.Runs, &st.Matches,
	)
	if err != nil {
		return st, fmt.Errorf("read stats: %w", err)
	}

	run, err := s.LatestRun(ctx)
	switch {
	case err == nil:
		st.LatestRunID = run.ID
	case !errors.Is(err, ErrNotFound):
		return st, err
	}
	return st, nil
}

func (s *Store) matchViews(ctx context.Context, query string, args ...any) ([]models.MatchView, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var views []models.MatchView
	for rows.Next() {
		var (
			v         models.MatchView
			matchedOn string
		)
		if err := rows.Scan(
			&v.MatchID, &v.JobID, &v.JobTitle, &v.CandidateID, &v.Name, &v.Email, &v.Skills, &v.ResumeText,
			&v.Score, &matchedOn, &v.RunID,
		); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		v.MatchedOn = parseTime(matchedOn)
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return views, nil
}
